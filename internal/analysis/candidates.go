package analysis

import (
	"gonum.org/v1/gonum/mat"

	"github.com/hh-analysis/eventview/internal/analysis/ntuple"
	"github.com/hh-analysis/eventview/internal/analysis/p4"
)

// LepCandidate is one selected lepton leg.
type LepCandidate struct {
	Momentum p4.Vec
	Index    int // position in the record's lepton block
	Charge   int
	Iso      float64
	Type     int
}

// newLepCandidate builds the lepton candidate for leg index n.
func newLepCandidate(event *ntuple.Event, n int) LepCandidate {
	return LepCandidate{
		Momentum: event.LepP4[n],
		Index:    n,
		Charge:   event.LepCharge[n],
		Iso:      event.LepIso[n],
		Type:     event.LepType[n],
	}
}

// JetCandidate is one candidate jet with its discriminators. Momentum
// may differ from the record's when the view has been systematically
// shifted; everything else is copied through unchanged.
type JetCandidate struct {
	Momentum    p4.Vec
	Index       int // position in the record's jet block
	CSV         float64
	DeepCSV     float64
	DeepFlavour float64
	HHBTag      float64
	PuID        uint16
	Resolution  float64 // fractional energy resolution
}

// newJetCandidate builds the jet candidate for jet index n.
func newJetCandidate(event *ntuple.Event, n int) JetCandidate {
	return JetCandidate{
		Momentum:    event.JetP4[n],
		Index:       n,
		CSV:         event.JetCSV[n],
		DeepCSV:     event.JetDeepCSV[n],
		DeepFlavour: event.JetDeepFlavour[n],
		HHBTag:      event.JetHHBTag[n],
		PuID:        event.JetPuID[n],
		Resolution:  event.JetResolution[n],
	}
}

// EnergyResolution returns the absolute energy resolution of the jet.
func (j JetCandidate) EnergyResolution() float64 {
	return j.Resolution * j.Momentum.E()
}

// FatJetCandidate is one large-radius jet with its sub-components.
type FatJetCandidate struct {
	Momentum     p4.Vec
	Index        int
	SoftDropMass float64
	SubJets      []p4.Vec
}

// HiggsBBCandidate is the two-jet composite built from the selected
// b-jet pair.
type HiggsBBCandidate struct {
	FirstDaughter  JetCandidate
	SecondDaughter JetCandidate
}

// Momentum returns the summed four-momentum of the pair.
func (h HiggsBBCandidate) Momentum() p4.Vec {
	return h.FirstDaughter.Momentum.Add(h.SecondDaughter.Momentum)
}

// DaughterMomenta returns the daughter momenta in slot order.
func (h HiggsBBCandidate) DaughterMomenta() [2]p4.Vec {
	return [2]p4.Vec{h.FirstDaughter.Momentum, h.SecondDaughter.Momentum}
}

// MET is the missing-transverse-energy object: a momentum plus its 2x2
// covariance.
type MET struct {
	Momentum p4.Vec
	Cov      *mat.SymDense
}

// newMET builds the MET object from the record's momentum and packed
// covariance (xx, xy, yy).
func newMET(event *ntuple.Event) MET {
	cov := mat.NewSymDense(2, nil)
	cov.SetSym(0, 0, event.MetCov[0])
	cov.SetSym(0, 1, event.MetCov[1])
	cov.SetSym(1, 1, event.MetCov[2])
	return MET{Momentum: event.MetP4, Cov: cov}
}
