package analysis

import (
	"math"

	"github.com/hh-analysis/eventview/internal/analysis/ntuple"
	"github.com/hh-analysis/eventview/internal/analysis/p4"
)

// VBF candidate acceptance (2017 jet-ID cuts, applied to all periods).
const (
	vbfJetPtCut  = 30.0
	vbfJetEtaCut = 4.7
)

// Barrel-endcap transition region affected by detector noise in the
// 2017 dataset. Low-pt jets inside it are vetoed unless they carry the
// tight pileup-id bit.
const (
	ecalNoiseEtaMin = 2.65
	ecalNoiseEtaMax = 3.139
	ecalNoisePtMax  = 50.0
)

// SelectedSignalJets holds the outcome of the signal-jet selection:
// the b-jet pair, the VBF pair and the size of the ranked b-candidate
// list. Either pair may be undefined; validity always requires the
// collection size.
type SelectedSignalJets struct {
	BJetPair   ntuple.JetPair
	VBFJetPair ntuple.JetPair
	NBJets     int
}

// NewSelectedSignalJets returns a selection with both pairs undefined.
func NewSelectedSignalJets() SelectedSignalJets {
	return SelectedSignalJets{
		BJetPair:   ntuple.UndefinedJetPair(),
		VBFJetPair: ntuple.UndefinedJetPair(),
	}
}

// HasBJetPair reports whether the b-jet pair addresses two distinct
// jets of a collection with nJets entries.
func (s SelectedSignalJets) HasBJetPair(nJets int) bool {
	return s.BJetPair.IsDefined(nJets)
}

// HasVBFPair reports whether the VBF pair addresses two distinct jets
// of a collection with nJets entries.
func (s SelectedSignalJets) HasVBFPair(nJets int) bool {
	return s.VBFJetPair.IsDefined(nJets)
}

// IsSelectedBJet reports whether jet n occupies a b-jet slot.
func (s SelectedSignalJets) IsSelectedBJet(n int) bool {
	return s.BJetPair.Contains(n)
}

// IsSelectedVBFJet reports whether jet n occupies a VBF slot.
func (s SelectedSignalJets) IsSelectedVBFJet(n int) bool {
	return s.VBFJetPair.Contains(n)
}

// PassEcalNoiseVeto reports whether a jet survives the detector-noise
// veto for the period. Only the 2017 period has an affected region;
// jets there below the pt threshold must carry the tight pileup-id
// bit.
func PassEcalNoiseVeto(mom p4.Vec, period Period, puID uint16) bool {
	if period != Run2017 {
		return true
	}
	absEta := math.Abs(mom.Eta())
	if absEta <= ecalNoiseEtaMin || absEta >= ecalNoiseEtaMax {
		return true
	}
	if mom.Pt() >= ecalNoisePtMax {
		return true
	}
	return puID&PuIDTightBit != 0
}

// SelectSignalJets chooses the b-jet pair and the VBF jet pair for one
// event.
//
// The b candidates are ranked by the period's tagging score; the
// top-ranked jet fills the first slot and the second-ranked jet fills
// the second slot only if it independently passes the medium working
// point. The VBF pair maximizes the dijet invariant mass over
// pt-ranked candidates that are not already claimed as b-jets. When
// the second b slot is still open, candidates excluded by the VBF
// choice are re-ranked to fill it; if none survive, the VBF pair is
// dropped and the original second-ranked b candidate is used
// unconditionally.
func SelectSignalJets(event *ntuple.Event, period Period, ordering JetOrdering) SelectedSignalJets {
	tagger := NewBTagger(period, ordering)
	selected := NewSelectedSignalJets()

	createJetInfo := func(useBTag bool) []JetInfo {
		infos := make([]JetInfo, 0, event.NJets())
		for n := 0; n < event.NJets(); n++ {
			if selected.IsSelectedBJet(n) || selected.IsSelectedVBFJet(n) {
				continue
			}
			if !PassEcalNoiseVeto(event.JetP4[n], period, event.JetPuID[n]) {
				continue
			}
			if event.JetPuID[n]&PuIDLooseBit == 0 {
				continue
			}
			tag := event.JetP4[n].Pt()
			if useBTag {
				tag = tagger.BTag(event, n)
			}
			infos = append(infos, JetInfo{P4: event.JetP4[n], Index: n, Tag: tag})
		}
		return infos
	}

	bJetsRanked := RankJets(createJetInfo(true), tagger.PtCut(), tagger.EtaCut())
	selected.NBJets = len(bJetsRanked)
	if len(bJetsRanked) >= 1 {
		selected.BJetPair.First = bJetsRanked[0].Index
	}
	if len(bJetsRanked) >= 2 && tagger.PassMedium(event, bJetsRanked[1].Index) {
		selected.BJetPair.Second = bJetsRanked[1].Index
	}

	vbfRanked := RankJets(createJetInfo(false), vbfJetPtCut, vbfJetEtaCut)
	maxMjj := math.Inf(-1)
	for n := 0; n < len(vbfRanked); n++ {
		for h := n + 1; h < len(vbfRanked); h++ {
			mjj := p4.InvariantMass(vbfRanked[n].P4, vbfRanked[h].P4)
			if mjj > maxMjj {
				maxMjj = mjj
				selected.VBFJetPair = ntuple.JetPair{First: vbfRanked[n].Index, Second: vbfRanked[h].Index}
			}
		}
	}

	if selected.HasBJetPair(event.NJets()) {
		return selected
	}

	// Second b slot still open: re-rank with the VBF claims excluded.
	retryRanked := RankJets(createJetInfo(true), tagger.PtCut(), tagger.EtaCut())
	if len(retryRanked) >= 1 {
		selected.BJetPair.Second = retryRanked[0].Index
	} else {
		// Nothing left outside the VBF pair. The b-jet pair wins the
		// conflict: drop the VBF pair and take the original
		// second-ranked candidate regardless of its working point.
		selected.VBFJetPair = ntuple.UndefinedJetPair()
		if len(bJetsRanked) >= 2 {
			selected.BJetPair.Second = bJetsRanked[1].Index
		}
	}
	return selected
}
