// Package ntuple defines the flat per-event record handed to the
// analysis layer by the upstream producer, together with the jet-pair
// identifier type used to key cached kinematic-fit results.
//
// The record is an immutable input contract: the producer fills it once
// per event and every view built on top of it only reads. Object-level
// quantities are stored as parallel slices indexed by object number,
// mirroring the columnar layout of the source tuple.
package ntuple

import "github.com/hh-analysis/eventview/internal/analysis/p4"

// EnergyScale identifies which calibration variant of the event the
// record represents. The nominal sample and each systematic variant are
// produced as separate records sharing the same event identifiers.
type EnergyScale int

const (
	ESCentral EnergyScale = iota
	ESTauUp
	ESTauDown
	ESJetUp
	ESJetDown
)

// Event is one flat, fully reconstructed event record.
type Event struct {
	// Identity.
	Run   uint32 `json:"run"`
	Lumi  uint32 `json:"lumi"`
	Event uint64 `json:"event"`

	ChannelID   int         `json:"channel_id"`
	EnergyScale EnergyScale `json:"energy_scale"`
	Rho         float64     `json:"rho"` // jet energy density

	// Signal leptons, addressed per signal hypothesis through the
	// daughter index slices below.
	LepP4     []p4.Vec  `json:"lep_p4"`
	LepCharge []int     `json:"lep_q"`
	LepIso    []float64 `json:"lep_iso"`
	LepType   []int     `json:"lep_type"`

	// Daughter-leg indices for each signal hypothesis: hypothesis h
	// pairs LepP4[FirstDaughterIndexes[h]] with
	// LepP4[SecondDaughterIndexes[h]].
	FirstDaughterIndexes  []int `json:"first_daughter_indexes"`
	SecondDaughterIndexes []int `json:"second_daughter_indexes"`

	// Candidate jets after energy corrections.
	JetP4          []p4.Vec  `json:"jets_p4"`
	JetCSV         []float64 `json:"jets_csv"`
	JetDeepCSV     []float64 `json:"jets_deep_csv"`
	JetDeepFlavour []float64 `json:"jets_deep_flavour"`
	JetHHBTag      []float64 `json:"jets_hh_btag"`
	JetPuID        []uint16  `json:"jets_pu_id"`      // packed working-point result bits
	JetResolution  []float64 `json:"jets_resolution"` // fractional energy resolution

	// Jets outside the candidate collection; they participate in MET
	// propagation when a systematic shift is applied.
	OtherJetP4 []p4.Vec `json:"other_jets_p4"`

	// Large-radius jets and their sub-components.
	FatJetP4           []p4.Vec  `json:"fat_jets_p4"`
	FatJetSoftDropMass []float64 `json:"fat_jets_m_softdrop"`
	SubJetP4           []p4.Vec  `json:"sub_jets_p4"`
	SubJetParent       []int     `json:"sub_jets_parent"` // index into FatJetP4

	// Missing transverse energy. MetCov packs the 2x2 covariance as
	// (xx, xy, yy).
	MetP4  p4.Vec     `json:"met_p4"`
	MetCov [3]float64 `json:"met_cov"`

	// Trigger results: one accept mask per event, one match mask per
	// signal hypothesis. Bit i corresponds to descriptor i of the
	// channel's trigger table.
	TriggerAccepts uint64   `json:"trigger_accepts"`
	TriggerMatches []uint64 `json:"trigger_matches"`

	// Cached kinematic-fit results keyed by jet-pair id (parallel
	// slices).
	KinFitJetPairID   []int     `json:"kinfit_jet_pair_id"`
	KinFitConvergence []int     `json:"kinfit_convergence"`
	KinFitChi2        []float64 `json:"kinfit_chi2"`
	KinFitMass        []float64 `json:"kinfit_m"`

	// Per-hypothesis di-lepton fit momenta from the upstream producer.
	SVFitIsValid []bool   `json:"svfit_is_valid"`
	SVFitP4      []p4.Vec `json:"svfit_p4"`
}

// NJets returns the number of candidate jets.
func (e *Event) NJets() int { return len(e.JetP4) }

// NFatJets returns the number of large-radius jets.
func (e *Event) NFatJets() int { return len(e.FatJetP4) }

// NHypotheses returns the number of signal hypotheses carried by the
// record.
func (e *Event) NHypotheses() int { return len(e.FirstDaughterIndexes) }
