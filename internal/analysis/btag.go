package analysis

import (
	"github.com/hh-analysis/eventview/internal/analysis/ntuple"
)

// Kinematic acceptance for b-jet candidates. Common to all periods.
const (
	bJetPtCut  = 20.0
	bJetEtaCut = 2.4
)

// btagThresholds maps (period, ordering, working point) to the
// discriminator threshold. Values follow the recommendations published
// per data-taking period.
var btagThresholds = map[Period]map[JetOrdering]map[WorkingPoint]float64{
	Run2016: {
		OrderByCSV:         {WPLoose: 0.5426, WPMedium: 0.8484, WPTight: 0.9535},
		OrderByDeepCSV:     {WPLoose: 0.2217, WPMedium: 0.6321, WPTight: 0.8953},
		OrderByDeepFlavour: {WPLoose: 0.0614, WPMedium: 0.3093, WPTight: 0.7221},
	},
	Run2017: {
		OrderByCSV:         {WPLoose: 0.5803, WPMedium: 0.8838, WPTight: 0.9693},
		OrderByDeepCSV:     {WPLoose: 0.1522, WPMedium: 0.4941, WPTight: 0.8001},
		OrderByDeepFlavour: {WPLoose: 0.0521, WPMedium: 0.3033, WPTight: 0.7489},
	},
	Run2018: {
		OrderByDeepCSV:     {WPLoose: 0.1241, WPMedium: 0.4184, WPTight: 0.7527},
		OrderByDeepFlavour: {WPLoose: 0.0494, WPMedium: 0.2770, WPTight: 0.7264},
	},
}

// BTagger is the stateless b-tagging policy for one period and jet
// ordering: it scores jets, carries the candidate pt/eta acceptance and
// decides working-point membership.
type BTagger struct {
	period   Period
	ordering JetOrdering
}

// NewBTagger returns the tagging policy for the given period and
// ordering.
func NewBTagger(period Period, ordering JetOrdering) BTagger {
	return BTagger{period: period, ordering: ordering}
}

// PtCut returns the minimum candidate transverse momentum.
func (b BTagger) PtCut() float64 { return bJetPtCut }

// EtaCut returns the maximum candidate |eta|.
func (b BTagger) EtaCut() float64 { return bJetEtaCut }

// BTag returns the ranking score of jet n under the tagger's ordering.
func (b BTagger) BTag(event *ntuple.Event, n int) float64 {
	switch b.ordering {
	case OrderByCSV:
		return event.JetCSV[n]
	case OrderByDeepCSV:
		return event.JetDeepCSV[n]
	case OrderByDeepFlavour:
		return event.JetDeepFlavour[n]
	case OrderByHHBTag:
		return event.JetHHBTag[n]
	default:
		return event.JetP4[n].Pt()
	}
}

// Pass reports whether jet n passes the given working point.
// Orderings without a published threshold set (pt ordering, the
// composite HH score) impose no requirement.
func (b BTagger) Pass(event *ntuple.Event, n int, wp WorkingPoint) bool {
	byOrdering, ok := btagThresholds[b.period]
	if !ok {
		return false
	}
	thresholds, ok := byOrdering[b.ordering]
	if !ok {
		return true
	}
	cut, ok := thresholds[wp]
	if !ok {
		return false
	}
	return b.BTag(event, n) >= cut
}

// PassMedium reports whether jet n passes the medium working point,
// the default requirement for the second signal b-jet.
func (b BTagger) PassMedium(event *ntuple.Event, n int) bool {
	return b.Pass(event, n, WPMedium)
}
