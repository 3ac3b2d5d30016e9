package analysis

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/hh-analysis/eventview/internal/analysis/jec"
	"github.com/hh-analysis/eventview/internal/analysis/ntuple"
	"github.com/hh-analysis/eventview/internal/analysis/p4"
)

// Cuts applied by GetHT to the non-signal jet sum.
const (
	htOtherJetsMinPt  = 20.0
	htOtherJetsMaxEta = 4.7
	htNoEtaCut        = 5.0
)

// EventView is the per-event facade over one flat record: it runs the
// signal-jet selection eagerly at construction and builds every other
// derived object lazily, at most once per instance.
//
// A view borrows the record and the per-sample summary read-only for
// its whole lifetime and owns everything it derives. One mutex guards
// all lazy cells, so a view may be queried from multiple goroutines;
// concurrent first-time access computes once and every caller observes
// the same value.
type EventView struct {
	event       *ntuple.Event
	summary     *SummaryInfo
	fitProducer FitProducer

	eventID         EventIdentifier
	hypothesisIndex int
	period          Period
	ordering        JetOrdering

	selectedSignalJets SelectedSignalJets
	triggerResults     TriggerResults

	mu           sync.Mutex
	leg1         *LepCandidate
	leg2         *LepCandidate
	jets         []JetCandidate
	jetsReady    bool
	fatJets      []FatJetCandidate
	fatJetsReady bool
	met          *MET
	higgsBB      *HiggsBBCandidate
	kinFit       *FitResults
	mt2          *float64
	mvaScore     float64
}

// NewEventView builds the view for one (event, signal hypothesis,
// period, jet ordering) tuple. The signal-jet selection runs here,
// before the instance can be shared. summary may be nil when the
// sample carries no metadata; accessors that need it fail later with
// ErrMissingMetadata. fit may be nil when no external fit solver is
// available; only a kinematic-fit cache miss needs it.
func NewEventView(event *ntuple.Event, hypothesisIndex int, period Period, ordering JetOrdering, summary *SummaryInfo, fit FitProducer) (*EventView, error) {
	if hypothesisIndex < 0 || hypothesisIndex >= event.NHypotheses() {
		return nil, fmt.Errorf("%w: hypothesis %d of %d", ErrInvalidIndex, hypothesisIndex, event.NHypotheses())
	}

	v := &EventView{
		event:           event,
		summary:         summary,
		fitProducer:     fit,
		eventID:         EventIdentifier{Run: event.Run, Lumi: event.Lumi, Event: event.Event},
		hypothesisIndex: hypothesisIndex,
		period:          period,
		ordering:        ordering,
	}
	v.selectedSignalJets = SelectSignalJets(event, period, ordering)

	v.triggerResults.SetAcceptBits(event.TriggerAccepts)
	if hypothesisIndex < len(event.TriggerMatches) {
		v.triggerResults.SetMatchBits(event.TriggerMatches[hypothesisIndex])
	}
	if summary != nil {
		table, err := summary.GetTriggerDescriptors(v.GetChannel())
		if err != nil {
			return nil, err
		}
		v.triggerResults.SetDescriptors(table)
	}
	return v, nil
}

// GetEventID returns the run/lumi/event identifier.
func (v *EventView) GetEventID() EventIdentifier { return v.eventID }

// GetChannel returns the di-lepton channel of the record.
func (v *EventView) GetChannel() Channel { return Channel(v.event.ChannelID) }

// GetEnergyScale returns the calibration variant of the record.
func (v *EventView) GetEnergyScale() ntuple.EnergyScale { return v.event.EnergyScale }

// GetPeriod returns the data-taking period of the view.
func (v *EventView) GetPeriod() Period { return v.period }

// GetJetOrdering returns the jet ordering of the view.
func (v *EventView) GetJetOrdering() JetOrdering { return v.ordering }

// GetNJets returns the number of candidate jets in the record.
func (v *EventView) GetNJets() int { return v.event.NJets() }

// GetNFatJets returns the number of large-radius jets in the record.
func (v *EventView) GetNFatJets() int { return v.event.NFatJets() }

// GetSelectedSignalJets returns the eager selection result.
func (v *EventView) GetSelectedSignalJets() SelectedSignalJets { return v.selectedSignalJets }

// GetTriggerResults returns the event's trigger results.
func (v *EventView) GetTriggerResults() *TriggerResults { return &v.triggerResults }

// GetSummaryInfo returns the per-sample summary.
func (v *EventView) GetSummaryInfo() (*SummaryInfo, error) {
	if v.summary == nil {
		return nil, fmt.Errorf("%w: summary not provided for this event", ErrMissingMetadata)
	}
	return v.summary, nil
}

// HasBJetPair reports whether the selection defined a b-jet pair.
func (v *EventView) HasBJetPair() bool {
	return v.selectedSignalJets.HasBJetPair(v.GetNJets())
}

// HasVBFJetPair reports whether the selection defined a VBF pair.
func (v *EventView) HasVBFJetPair() bool {
	return v.selectedSignalJets.HasVBFPair(v.GetNJets())
}

// GetSelectedBJetIndices returns the two b-jet slots in order.
func (v *EventView) GetSelectedBJetIndices() [2]int {
	return [2]int{v.selectedSignalJets.BJetPair.First, v.selectedSignalJets.BJetPair.Second}
}

// GetSelectedBJetIndicesSet returns the b-jet slots as a set.
func (v *EventView) GetSelectedBJetIndicesSet() map[int]struct{} {
	return map[int]struct{}{
		v.selectedSignalJets.BJetPair.First:  {},
		v.selectedSignalJets.BJetPair.Second: {},
	}
}

// legIndex resolves a leg id (1 or 2) to the record's lepton index for
// the view's hypothesis.
func (v *EventView) legIndex(legID int) (int, error) {
	switch legID {
	case 1:
		return v.event.FirstDaughterIndexes[v.hypothesisIndex], nil
	case 2:
		return v.event.SecondDaughterIndexes[v.hypothesisIndex], nil
	}
	return 0, fmt.Errorf("%w: leg id %d", ErrInvalidIndex, legID)
}

func (v *EventView) legLocked(legID int) (*LepCandidate, error) {
	cell := &v.leg1
	if legID == 2 {
		cell = &v.leg2
	}
	if *cell == nil {
		n, err := v.legIndex(legID)
		if err != nil {
			return nil, err
		}
		if n < 0 || n >= len(v.event.LepP4) {
			return nil, fmt.Errorf("%w: lepton %d of %d", ErrInvalidIndex, n, len(v.event.LepP4))
		}
		lep := newLepCandidate(v.event, n)
		*cell = &lep
	}
	return *cell, nil
}

// GetFirstLeg returns the first lepton leg of the hypothesis.
func (v *EventView) GetFirstLeg() (*LepCandidate, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.legLocked(1)
}

// GetSecondLeg returns the second lepton leg of the hypothesis.
func (v *EventView) GetSecondLeg() (*LepCandidate, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.legLocked(2)
}

// GetLeg returns the leg with the given id (1 or 2).
func (v *EventView) GetLeg(legID int) (*LepCandidate, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if legID != 1 && legID != 2 {
		return nil, fmt.Errorf("%w: leg id %d", ErrInvalidIndex, legID)
	}
	return v.legLocked(legID)
}

func (v *EventView) jetsLocked() []JetCandidate {
	if !v.jetsReady {
		v.jets = make([]JetCandidate, 0, v.event.NJets())
		for n := 0; n < v.event.NJets(); n++ {
			v.jets = append(v.jets, newJetCandidate(v.event, n))
		}
		v.jetsReady = true
	}
	return v.jets
}

// GetJets returns the candidate jet collection, building it from the
// record on first access. Callers must treat the returned slice as
// read-only.
func (v *EventView) GetJets() []JetCandidate {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.jetsLocked()
}

// SetJets overwrites the jet collection. Only used while assembling a
// shifted copy before it is published.
func (v *EventView) SetJets(jets []JetCandidate) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.jets = make([]JetCandidate, len(jets))
	copy(v.jets, jets)
	v.jetsReady = true
}

func (v *EventView) fatJetsLocked() []FatJetCandidate {
	if !v.fatJetsReady {
		v.fatJets = make([]FatJetCandidate, 0, v.event.NFatJets())
		for n := 0; n < v.event.NFatJets(); n++ {
			fj := FatJetCandidate{
				Momentum:     v.event.FatJetP4[n],
				Index:        n,
				SoftDropMass: v.event.FatJetSoftDropMass[n],
			}
			for s, parent := range v.event.SubJetParent {
				if parent == n {
					fj.SubJets = append(fj.SubJets, v.event.SubJetP4[s])
				}
			}
			v.fatJets = append(v.fatJets, fj)
		}
		v.fatJetsReady = true
	}
	return v.fatJets
}

// GetFatJets returns the large-radius jet collection.
func (v *EventView) GetFatJets() []FatJetCandidate {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fatJetsLocked()
}

func (v *EventView) metLocked() *MET {
	if v.met == nil {
		met := newMET(v.event)
		v.met = &met
	}
	return v.met
}

// GetMET returns the missing-energy object.
func (v *EventView) GetMET() *MET {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.metLocked()
}

// SetMetMomentum overwrites the missing-energy momentum. Only used
// while assembling a shifted copy before it is published.
func (v *EventView) SetMetMomentum(mom p4.Vec) {
	v.mu.Lock()
	defer v.mu.Unlock()
	met := v.metLocked()
	met.Momentum = mom
}

func (v *EventView) bJetLocked(index int) (*JetCandidate, error) {
	if !v.selectedSignalJets.HasBJetPair(v.event.NJets()) {
		return nil, fmt.Errorf("%w: b-jet pair not selected", ErrMissingSignalObject)
	}
	jets := v.jetsLocked()
	switch index {
	case 1:
		return &jets[v.selectedSignalJets.BJetPair.First], nil
	case 2:
		return &jets[v.selectedSignalJets.BJetPair.Second], nil
	}
	return nil, fmt.Errorf("%w: b-jet slot %d", ErrInvalidIndex, index)
}

// GetBJet returns the b-jet in slot 1 or 2.
func (v *EventView) GetBJet(index int) (*JetCandidate, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bJetLocked(index)
}

// GetVBFJet returns the VBF jet in slot 1 or 2.
func (v *EventView) GetVBFJet(index int) (*JetCandidate, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.selectedSignalJets.HasVBFPair(v.event.NJets()) {
		return nil, fmt.Errorf("%w: VBF pair not selected", ErrMissingSignalObject)
	}
	jets := v.jetsLocked()
	switch index {
	case 1:
		return &jets[v.selectedSignalJets.VBFJetPair.First], nil
	case 2:
		return &jets[v.selectedSignalJets.VBFJetPair.Second], nil
	}
	return nil, fmt.Errorf("%w: VBF slot %d", ErrInvalidIndex, index)
}

func (v *EventView) higgsBBLocked() (*HiggsBBCandidate, error) {
	if !v.selectedSignalJets.HasBJetPair(v.event.NJets()) {
		return nil, fmt.Errorf("%w: cannot build H->bb candidate", ErrMissingSignalObject)
	}
	if v.higgsBB == nil {
		jets := v.jetsLocked()
		v.higgsBB = &HiggsBBCandidate{
			FirstDaughter:  jets[v.selectedSignalJets.BJetPair.First],
			SecondDaughter: jets[v.selectedSignalJets.BJetPair.Second],
		}
	}
	return v.higgsBB, nil
}

// GetHiggsBB returns the two-jet composite built from the b-jet pair.
func (v *EventView) GetHiggsBB() (*HiggsBBCandidate, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.higgsBBLocked()
}

// SelectJets returns jets passing the given pt/eta window, optional
// pileup-id and b-tag requirements and an explicit index exclusion
// set, ranked under the given ordering. It is independent of the
// cached full jet list's lazy state and never alters the selection.
func (v *EventView) SelectJets(ptCut, etaCut float64, applyPu, passBTag bool, ordering JetOrdering, exclude map[int]struct{}, lowEtaCut float64) []JetCandidate {
	v.mu.Lock()
	defer v.mu.Unlock()

	tagger := NewBTagger(v.period, ordering)
	allJets := v.jetsLocked()
	infos := make([]JetInfo, 0, len(allJets))
	for n := range allJets {
		jet := &allJets[n]
		if !PassEcalNoiseVeto(jet.Momentum, v.period, v.event.JetPuID[n]) {
			continue
		}
		if _, skip := exclude[n]; skip {
			continue
		}
		if applyPu && v.event.JetPuID[n]&PuIDLooseBit == 0 {
			continue
		}
		if math.Abs(jet.Momentum.Eta()) < lowEtaCut {
			continue
		}
		if passBTag && !tagger.Pass(v.event, n, WPMedium) {
			continue
		}
		infos = append(infos, JetInfo{P4: jet.Momentum, Index: n, Tag: tagger.BTag(v.event, n)})
	}
	ranked := RankJets(infos, ptCut, etaCut)
	selected := make([]JetCandidate, 0, len(ranked))
	for _, info := range ranked {
		selected = append(selected, allJets[info.Index])
	}
	return selected
}

// GetHT returns the scalar pt sum over jets with pt > 20 GeV,
// optionally restricted to |eta| < 4.7 and optionally excluding the
// selected b-jets.
func (v *EventView) GetHT(includeBBJets, applyEtaCut bool) float64 {
	etaCut := htNoEtaCut
	if applyEtaCut {
		etaCut = htOtherJetsMaxEta
	}
	var exclude map[int]struct{}
	if !includeBBJets {
		exclude = v.GetSelectedBJetIndicesSet()
	}

	var ht float64
	for _, jet := range v.SelectJets(htOtherJetsMinPt, etaCut, false, false, OrderByDeepCSV, exclude, 0) {
		ht += jet.Momentum.Pt()
	}
	return ht
}

// SelectFatJet returns the first large-radius jet whose two leading
// sub-components both match the selected b-jet daughters within
// deltaRCut, under either daughter pairing. It returns nil when no
// b-jet pair is selected or no fat jet matches.
func (v *EventView) SelectFatJet(massCut, deltaRCut float64) *FatJetCandidate {
	v.mu.Lock()
	defer v.mu.Unlock()

	higgsBB, err := v.higgsBBLocked()
	if err != nil {
		return nil
	}
	daughters := higgsBB.DaughterMomenta()

	fatJets := v.fatJetsLocked()
	for i := range fatJets {
		fatJet := &fatJets[i]
		if fatJet.SoftDropMass < massCut {
			continue
		}
		if len(fatJet.SubJets) < 2 {
			continue
		}
		subJets := make([]p4.Vec, len(fatJet.SubJets))
		copy(subJets, fatJet.SubJets)
		sort.Slice(subJets, func(a, b int) bool { return subJets[a].Pt() > subJets[b].Pt() })

		var dR [2][2]float64
		for n := 0; n < 2; n++ {
			for k := 0; k < 2; k++ {
				dR[n][k] = p4.DeltaR(subJets[n], daughters[k])
			}
		}
		if (dR[0][0] < deltaRCut && dR[1][1] < deltaRCut) || (dR[0][1] < deltaRCut && dR[1][0] < deltaRCut) {
			return fatJet
		}
	}
	return nil
}

// GetKinFitResults returns the kinematic-fit results for the selected
// b-jet pair. A result cached in the record for the pair's id is
// reused as stored; otherwise the external fit producer runs exactly
// once per view instance and its outcome is cached.
func (v *EventView) GetKinFitResults() (*FitResults, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.selectedSignalJets.HasBJetPair(v.event.NJets()) {
		return nil, fmt.Errorf("%w: cannot retrieve kinematic-fit results", ErrMissingSignalObject)
	}
	if v.kinFit != nil {
		return v.kinFit, nil
	}

	pairID := v.selectedSignalJets.BJetPair.PairIndex(v.event.NJets())
	for i, id := range v.event.KinFitJetPairID {
		if id != pairID {
			continue
		}
		results := newFitResults(FitOutcome{
			Convergence: v.event.KinFitConvergence[i],
			Chi2:        v.event.KinFitChi2[i],
			Mass:        v.event.KinFitMass[i],
		})
		v.kinFit = &results
		return v.kinFit, nil
	}

	if v.fitProducer == nil {
		return nil, fmt.Errorf("%w: no fit producer attached and pair %d not in cache", ErrMissingMetadata, pairID)
	}
	leg1, err := v.legLocked(1)
	if err != nil {
		return nil, err
	}
	leg2, err := v.legLocked(2)
	if err != nil {
		return nil, err
	}
	bjet1, err := v.bJetLocked(1)
	if err != nil {
		return nil, err
	}
	bjet2, err := v.bJetLocked(2)
	if err != nil {
		return nil, err
	}
	outcome, err := v.fitProducer.Fit(
		leg1.Momentum, leg2.Momentum,
		bjet1.Momentum, bjet2.Momentum,
		*v.metLocked(),
		bjet1.EnergyResolution(), bjet2.EnergyResolution(),
	)
	if err != nil {
		return nil, fmt.Errorf("kinematic fit failed: %w", err)
	}
	results := newFitResults(outcome)
	v.kinFit = &results
	return v.kinFit, nil
}

// GetMT2 returns the event's stransverse mass, computed once from the
// lepton legs, the b-jet daughters and the record's missing energy.
func (v *EventView) GetMT2() (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.mt2 == nil {
		leg1, err := v.legLocked(1)
		if err != nil {
			return 0, err
		}
		leg2, err := v.legLocked(2)
		if err != nil {
			return 0, err
		}
		higgsBB, err := v.higgsBBLocked()
		if err != nil {
			return 0, err
		}
		daughters := higgsBB.DaughterMomenta()
		mt2 := CalculateMT2(leg1.Momentum, leg2.Momentum, daughters[0], daughters[1], v.event.MetP4)
		v.mt2 = &mt2
	}
	return *v.mt2, nil
}

// GetHiggsTTMomentum returns the di-lepton system momentum: the
// producer's fit momentum for the hypothesis when useFit is set (and
// valid), the summed visible leg momenta otherwise.
func (v *EventView) GetHiggsTTMomentum(useFit bool) (p4.Vec, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.higgsTTMomentumLocked(useFit)
}

func (v *EventView) higgsTTMomentumLocked(useFit bool) (p4.Vec, error) {
	if useFit {
		if v.hypothesisIndex >= len(v.event.SVFitIsValid) || !v.event.SVFitIsValid[v.hypothesisIndex] {
			return p4.Vec{}, fmt.Errorf("%w: no valid di-lepton fit for hypothesis %d", ErrMissingSignalObject, v.hypothesisIndex)
		}
		return v.event.SVFitP4[v.hypothesisIndex], nil
	}
	leg1, err := v.legLocked(1)
	if err != nil {
		return p4.Vec{}, err
	}
	leg2, err := v.legLocked(2)
	if err != nil {
		return p4.Vec{}, err
	}
	return leg1.Momentum.Add(leg2.Momentum), nil
}

// GetResonanceMomentum returns the full-resonance momentum: di-lepton
// system plus the H->bb composite, optionally adding the missing
// energy. Adding MET on top of the fit momentum is rejected since the
// fit already absorbs it.
func (v *EventView) GetResonanceMomentum(useFit, addMET bool) (p4.Vec, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if useFit && addMET {
		return p4.Vec{}, fmt.Errorf("%w: cannot add MET with the fit momentum applied", ErrInvalidConfiguration)
	}
	htt, err := v.higgsTTMomentumLocked(useFit)
	if err != nil {
		return p4.Vec{}, err
	}
	higgsBB, err := v.higgsBBLocked()
	if err != nil {
		return p4.Vec{}, err
	}
	mom := htt.Add(higgsBB.Momentum())
	if addMET {
		mom = mom.Add(v.metLocked().Momentum)
	}
	return mom, nil
}

// SetMvaScore assigns the externally computed classifier score.
func (v *EventView) SetMvaScore(score float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mvaScore = score
}

// GetMvaScore returns the assigned classifier score.
func (v *EventView) GetMvaScore() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mvaScore
}

// copyView clones the view including all resolved cells. The clone has
// its own mutex and owns deep copies of the mutable cells, so the two
// instances never alias cached state.
func (v *EventView) copyView() *EventView {
	v.mu.Lock()
	defer v.mu.Unlock()

	c := &EventView{
		event:              v.event,
		summary:            v.summary,
		fitProducer:        v.fitProducer,
		eventID:            v.eventID,
		hypothesisIndex:    v.hypothesisIndex,
		period:             v.period,
		ordering:           v.ordering,
		selectedSignalJets: v.selectedSignalJets,
		triggerResults:     v.triggerResults,
		jetsReady:          v.jetsReady,
		fatJetsReady:       v.fatJetsReady,
		mvaScore:           v.mvaScore,
	}
	if v.leg1 != nil {
		leg := *v.leg1
		c.leg1 = &leg
	}
	if v.leg2 != nil {
		leg := *v.leg2
		c.leg2 = &leg
	}
	if v.jetsReady {
		c.jets = make([]JetCandidate, len(v.jets))
		copy(c.jets, v.jets)
	}
	if v.fatJetsReady {
		c.fatJets = make([]FatJetCandidate, len(v.fatJets))
		copy(c.fatJets, v.fatJets)
	}
	if v.met != nil {
		met := *v.met
		c.met = &met
	}
	if v.higgsBB != nil {
		bb := *v.higgsBB
		c.higgsBB = &bb
	}
	if v.kinFit != nil {
		fit := *v.kinFit
		c.kinFit = &fit
	}
	if v.mt2 != nil {
		mt2 := *v.mt2
		c.mt2 = &mt2
	}
	return c
}

// ApplyShift derives an independent sibling view with the jet and
// missing-energy kinematics recomputed under the named uncertainty
// source and scale. The receiver is untouched; selection indices are
// copied as-is and refer to positions in the corrected jet list. The
// new instance is fully assembled before it is returned, so its direct
// cache overwrites are race-free.
func (v *EventView) ApplyShift(source jec.Source, scale jec.Scale) (*EventView, error) {
	summary, err := v.GetSummaryInfo()
	if err != nil {
		return nil, err
	}
	provider, err := summary.GetJecUncertainties()
	if err != nil {
		return nil, err
	}

	shifted := v.copyView()
	jets := shifted.GetJets()
	momenta := make([]p4.Vec, len(jets))
	for i := range jets {
		momenta[i] = jets[i].Momentum
	}
	metMomentum := shifted.GetMET().Momentum

	corrected, correctedMet, err := provider.ApplyShift(momenta, source, scale, v.event.OtherJetP4, metMomentum)
	if err != nil {
		return nil, fmt.Errorf("applying shift %s/%s: %w", source, scale, err)
	}

	correctedJets := make([]JetCandidate, len(jets))
	copy(correctedJets, jets)
	for i := range correctedJets {
		correctedJets[i].Momentum = corrected[i]
	}
	shifted.SetJets(correctedJets)
	shifted.SetMetMomentum(correctedMet)
	return shifted, nil
}
