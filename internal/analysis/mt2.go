package analysis

import (
	"math"

	"github.com/hh-analysis/eventview/internal/analysis/p4"
)

// Grid-refinement parameters for the MT2 minimization. The objective
// is convex in the invisible-momentum split, so repeatedly shrinking a
// regular grid around the running minimum converges to the global one.
const (
	mt2GridPoints  = 17
	mt2Refinements = 10
	mt2ShrinkRate  = 0.35
)

// transverseMass returns the transverse mass of a visible system
// paired with a massless invisible momentum (qx, qy).
func transverseMass(vis p4.Vec, qx, qy float64) float64 {
	etVis := vis.Et()
	etInv := math.Hypot(qx, qy)
	m := vis.M()
	mt2 := m*m + 2*(etVis*etInv-(vis.Px()*qx+vis.Py()*qy))
	if mt2 <= 0 {
		return 0
	}
	return math.Sqrt(mt2)
}

// CalculateMT2 computes the stransverse mass of the event: the two
// visible sides are lepton+b-jet pairings (leg1 with bjet1, leg2 with
// bjet2) and the invisible transverse momentum is split between the
// sides so that the larger of the two transverse masses is minimal.
// The invisible particles are treated as massless. The minimization is
// a deterministic two-dimensional grid refinement, so identical inputs
// always yield identical output.
func CalculateMT2(leg1, leg2, bjet1, bjet2, met p4.Vec) float64 {
	visA := leg1.Add(bjet1)
	visB := leg2.Add(bjet2)

	objective := func(qx, qy float64) float64 {
		mtA := transverseMass(visA, qx, qy)
		mtB := transverseMass(visB, met.Px()-qx, met.Py()-qy)
		return math.Max(mtA, mtB)
	}

	// Center the initial grid on an even split; span generously beyond
	// the kinematic scale of the event so the minimum is inside.
	cx, cy := met.Px()/2, met.Py()/2
	span := 2 * math.Max(50, math.Max(met.Pt(), math.Max(visA.Pt(), visB.Pt())))

	best := objective(cx, cy)
	for r := 0; r < mt2Refinements; r++ {
		bx, by := cx, cy
		step := 2 * span / float64(mt2GridPoints-1)
		for i := 0; i < mt2GridPoints; i++ {
			qx := cx - span + float64(i)*step
			for j := 0; j < mt2GridPoints; j++ {
				qy := cy - span + float64(j)*step
				if v := objective(qx, qy); v < best {
					best = v
					bx, by = qx, qy
				}
			}
		}
		cx, cy = bx, by
		span *= mt2ShrinkRate
	}
	return best
}
