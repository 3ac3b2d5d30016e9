package analysis

import (
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hh-analysis/eventview/internal/analysis/p4"
)

// kinFitDegreesOfFreedom is the constraint count of the resonance fit;
// the chi-square probability is evaluated against it.
const kinFitDegreesOfFreedom = 2

// FitOutcome is the raw result of one kinematic fit, as produced by
// the external solver or cached in the record.
type FitOutcome struct {
	Convergence int
	Chi2        float64
	Mass        float64
}

// FitResults is the fit outcome enriched with the chi-square
// probability the analysis consumes.
type FitResults struct {
	Convergence int
	Chi2        float64
	Probability float64
	Mass        float64
}

// Converged reports whether the fit reached a minimum.
func (r FitResults) Converged() bool { return r.Convergence > 0 }

// FitProducer runs the constrained kinematic fit for one lepton pair,
// jet pair and missing-energy object. res1 and res2 are the absolute
// energy resolutions of the two jets. The solver is external to this
// module; it is consumed as an opaque, synchronous function.
type FitProducer interface {
	Fit(leg1, leg2, jet1, jet2 p4.Vec, met MET, res1, res2 float64) (FitOutcome, error)
}

// FitProducerFunc adapts a function to the FitProducer interface.
type FitProducerFunc func(leg1, leg2, jet1, jet2 p4.Vec, met MET, res1, res2 float64) (FitOutcome, error)

// Fit implements FitProducer.
func (f FitProducerFunc) Fit(leg1, leg2, jet1, jet2 p4.Vec, met MET, res1, res2 float64) (FitOutcome, error) {
	return f(leg1, leg2, jet1, jet2, met, res1, res2)
}

// chi2Dist is the reference distribution for fit probabilities.
var chi2Dist = distuv.ChiSquared{K: kinFitDegreesOfFreedom}

// ChiSquareProbability returns the upper-tail probability of chi2
// under the fit's degrees of freedom. Non-positive inputs map to 1.
func ChiSquareProbability(chi2 float64) float64 {
	if chi2 <= 0 {
		return 1
	}
	return chi2Dist.Survival(chi2)
}

// newFitResults derives the full results record from a raw outcome.
func newFitResults(out FitOutcome) FitResults {
	return FitResults{
		Convergence: out.Convergence,
		Chi2:        out.Chi2,
		Probability: ChiSquareProbability(out.Chi2),
		Mass:        out.Mass,
	}
}
