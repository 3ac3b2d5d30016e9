// Package analysis builds per-event views over the flat ntuple record:
// signal-jet selection, trigger results, lazily derived composite
// objects and systematic shifts. One EventView is created per
// (event, signal hypothesis, period, jet ordering) and may be queried
// from multiple goroutines.
package analysis

import "fmt"

// Period identifies a data-taking period. Working points, kinematic
// cuts and detector vetoes depend on it.
type Period int

const (
	Run2016 Period = iota
	Run2017
	Run2018
)

// String returns the conventional period label.
func (p Period) String() string {
	switch p {
	case Run2016:
		return "Run2016"
	case Run2017:
		return "Run2017"
	case Run2018:
		return "Run2018"
	default:
		return fmt.Sprintf("Period(%d)", int(p))
	}
}

// ParsePeriod converts a period label to a Period.
func ParsePeriod(s string) (Period, error) {
	switch s {
	case "Run2016", "2016":
		return Run2016, nil
	case "Run2017", "2017":
		return Run2017, nil
	case "Run2018", "2018":
		return Run2018, nil
	}
	return 0, fmt.Errorf("unknown period %q", s)
}

// Channel identifies the di-lepton final state of an event.
type Channel int

const (
	ChannelETau Channel = iota
	ChannelMuTau
	ChannelTauTau
	ChannelMuMu
)

// String returns the conventional channel label.
func (c Channel) String() string {
	switch c {
	case ChannelETau:
		return "eTau"
	case ChannelMuTau:
		return "muTau"
	case ChannelTauTau:
		return "tauTau"
	case ChannelMuMu:
		return "muMu"
	default:
		return fmt.Sprintf("Channel(%d)", int(c))
	}
}

// JetOrdering selects which per-jet scalar ranks jet candidates.
type JetOrdering int

const (
	OrderByPt JetOrdering = iota
	OrderByCSV
	OrderByDeepCSV
	OrderByDeepFlavour
	OrderByHHBTag
)

// String returns the ordering label.
func (o JetOrdering) String() string {
	switch o {
	case OrderByPt:
		return "Pt"
	case OrderByCSV:
		return "CSV"
	case OrderByDeepCSV:
		return "DeepCSV"
	case OrderByDeepFlavour:
		return "DeepFlavour"
	case OrderByHHBTag:
		return "HHBTag"
	default:
		return fmt.Sprintf("JetOrdering(%d)", int(o))
	}
}

// ParseJetOrdering converts an ordering label to a JetOrdering.
func ParseJetOrdering(s string) (JetOrdering, error) {
	switch s {
	case "Pt":
		return OrderByPt, nil
	case "CSV":
		return OrderByCSV, nil
	case "DeepCSV":
		return OrderByDeepCSV, nil
	case "DeepFlavour":
		return OrderByDeepFlavour, nil
	case "HHBTag":
		return OrderByHHBTag, nil
	}
	return 0, fmt.Errorf("unknown jet ordering %q", s)
}

// WorkingPoint names a discriminator threshold used to binarize a
// continuous identification score.
type WorkingPoint int

const (
	WPLoose WorkingPoint = iota
	WPMedium
	WPTight
)

// String returns the working-point label.
func (w WorkingPoint) String() string {
	switch w {
	case WPLoose:
		return "Loose"
	case WPMedium:
		return "Medium"
	case WPTight:
		return "Tight"
	default:
		return fmt.Sprintf("WorkingPoint(%d)", int(w))
	}
}

// Packed pileup-id result bits stored per jet in the record, one bit
// per working point.
const (
	PuIDLooseBit  uint16 = 1 << 1
	PuIDMediumBit uint16 = 1 << 2
	PuIDTightBit  uint16 = 1 << 3
)

// EventIdentifier uniquely addresses one event within a dataset.
type EventIdentifier struct {
	Run   uint32
	Lumi  uint32
	Event uint64
}

// String formats the identifier as run:lumi:event.
func (id EventIdentifier) String() string {
	return fmt.Sprintf("%d:%d:%d", id.Run, id.Lumi, id.Event)
}
