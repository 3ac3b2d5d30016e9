package analysis

import (
	"github.com/hh-analysis/eventview/internal/analysis/jec"
	"github.com/hh-analysis/eventview/internal/analysis/ntuple"
	"github.com/hh-analysis/eventview/internal/analysis/p4"
)

// allPuIDBits passes every pileup working point.
const allPuIDBits = PuIDLooseBit | PuIDMediumBit | PuIDTightBit

// testJet describes one jet of a fixture event.
type testJet struct {
	pt, eta, phi, m float64
	deepCSV         float64
	puID            uint16
	resolution      float64
}

// makeEvent assembles a single-hypothesis muTau fixture event with two
// leptons and the given jets.
func makeEvent(jets []testJet) *ntuple.Event {
	event := &ntuple.Event{
		Run:       315974,
		Lumi:      87,
		Event:     1294823,
		ChannelID: int(ChannelMuTau),
		Rho:       21.4,

		LepP4:     []p4.Vec{p4.PtEtaPhiM(28, 0.4, 0.3, 0.106), p4.PtEtaPhiM(42, -0.9, -2.2, 1.2)},
		LepCharge: []int{+1, -1},
		LepIso:    []float64{0.05, 0.8},
		LepType:   []int{2, 3},

		FirstDaughterIndexes:  []int{0},
		SecondDaughterIndexes: []int{1},

		MetP4:  p4.PtEtaPhiM(52, 0, 1.7, 0),
		MetCov: [3]float64{400, 20, 380},

		TriggerAccepts: 0b101,
		TriggerMatches: []uint64{0b001},
	}
	for _, j := range jets {
		event.JetP4 = append(event.JetP4, p4.PtEtaPhiM(j.pt, j.eta, j.phi, j.m))
		event.JetCSV = append(event.JetCSV, j.deepCSV)
		event.JetDeepCSV = append(event.JetDeepCSV, j.deepCSV)
		event.JetDeepFlavour = append(event.JetDeepFlavour, j.deepCSV)
		event.JetHHBTag = append(event.JetHHBTag, j.deepCSV)
		event.JetPuID = append(event.JetPuID, j.puID)
		event.JetResolution = append(event.JetResolution, j.resolution)
	}
	return event
}

// fourJetEvent is the standard fixture: jets 0 and 1 are well-tagged
// central jets, jets 2 and 3 are hard forward jets with a large dijet
// mass.
func fourJetEvent() *ntuple.Event {
	return makeEvent([]testJet{
		{pt: 60, eta: 0.5, phi: 0.1, m: 8, deepCSV: 0.95, puID: allPuIDBits, resolution: 0.10},
		{pt: 55, eta: -0.8, phi: 2.0, m: 7, deepCSV: 0.85, puID: allPuIDBits, resolution: 0.12},
		{pt: 80, eta: 2.0, phi: -1.4, m: 9, deepCSV: 0.30, puID: allPuIDBits, resolution: 0.08},
		{pt: 70, eta: -2.1, phi: 1.1, m: 9, deepCSV: 0.20, puID: allPuIDBits, resolution: 0.08},
	})
}

// testSummary returns a summary with a muTau trigger table and a flat
// 3% uncertainty provider.
func testSummary() *SummaryInfo {
	provider := jec.NewTableProvider([]jec.TableRow{
		{Source: jec.SourceTotal, EtaMin: 0, EtaMax: 5.2, RelativeUnc: 0.03},
	})
	return NewSummaryInfo(map[Channel][]string{
		ChannelMuTau: {"HLT_IsoMu24_v", "HLT_IsoMu27_v", "HLT_IsoMu24_eta2p1_LooseChargedIsoPFTau27_v"},
	}, provider)
}

// mustView builds a view over event with the standard fixture
// settings, panicking on constructor failure (fixture bug).
func mustView(event *ntuple.Event, summary *SummaryInfo, fit FitProducer) *EventView {
	v, err := NewEventView(event, 0, Run2017, OrderByDeepCSV, summary, fit)
	if err != nil {
		panic(err)
	}
	return v
}
