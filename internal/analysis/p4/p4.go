// Package p4 provides the Lorentz four-vector arithmetic used by the
// event-view and selection code. Vectors are stored in Cartesian form
// (px, py, pz, E) so that sums are exact; collider-frame accessors
// (pt, eta, phi, mass) are derived on demand.
package p4

import "math"

// Vec is a Lorentz four-vector. X, Y, Z are the momentum components in
// GeV and T is the energy. The zero value is the null vector.
type Vec struct {
	X float64 `json:"px"`
	Y float64 `json:"py"`
	Z float64 `json:"pz"`
	T float64 `json:"e"`
}

// PxPyPzE builds a vector directly from Cartesian components.
func PxPyPzE(px, py, pz, e float64) Vec {
	return Vec{X: px, Y: py, Z: pz, T: e}
}

// PtEtaPhiM builds a vector from the collider-frame representation.
func PtEtaPhiM(pt, eta, phi, m float64) Vec {
	px := pt * math.Cos(phi)
	py := pt * math.Sin(phi)
	pz := pt * math.Sinh(eta)
	p2 := px*px + py*py + pz*pz
	return Vec{X: px, Y: py, Z: pz, T: math.Sqrt(p2 + m*m)}
}

// Px returns the x momentum component.
func (v Vec) Px() float64 { return v.X }

// Py returns the y momentum component.
func (v Vec) Py() float64 { return v.Y }

// Pz returns the longitudinal momentum component.
func (v Vec) Pz() float64 { return v.Z }

// E returns the energy.
func (v Vec) E() float64 { return v.T }

// P returns the magnitude of the three-momentum.
func (v Vec) P() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Pt returns the transverse momentum.
func (v Vec) Pt() float64 {
	return math.Hypot(v.X, v.Y)
}

// Phi returns the azimuthal angle in (-pi, pi].
func (v Vec) Phi() float64 {
	if v.X == 0 && v.Y == 0 {
		return 0
	}
	return math.Atan2(v.Y, v.X)
}

// Eta returns the pseudorapidity. Vectors along the beam axis map to
// +/-Inf, matching the limit of the exact formula.
func (v Vec) Eta() float64 {
	pt := v.Pt()
	if pt == 0 {
		if v.Z == 0 {
			return 0
		}
		return math.Inf(int(math.Copysign(1, v.Z)))
	}
	return math.Asinh(v.Z / pt)
}

// M returns the invariant mass. Spacelike vectors (which can appear
// transiently from float rounding on massless objects) clamp to zero.
func (v Vec) M() float64 {
	m2 := v.T*v.T - (v.X*v.X + v.Y*v.Y + v.Z*v.Z)
	if m2 <= 0 {
		return 0
	}
	return math.Sqrt(m2)
}

// Et returns the transverse energy sqrt(m^2 + pt^2).
func (v Vec) Et() float64 {
	pt := v.Pt()
	m := v.M()
	return math.Sqrt(m*m + pt*pt)
}

// Add returns the four-vector sum v + u.
func (v Vec) Add(u Vec) Vec {
	return Vec{X: v.X + u.X, Y: v.Y + u.Y, Z: v.Z + u.Z, T: v.T + u.T}
}

// Scale multiplies all four components by s. For s > 0 this preserves
// direction and rescales pt, energy and mass together, which is the
// operation a relative jet-energy correction applies.
func (v Vec) Scale(s float64) Vec {
	return Vec{X: v.X * s, Y: v.Y * s, Z: v.Z * s, T: v.T * s}
}

// DeltaPhi returns the azimuthal separation of two vectors in [0, pi].
func DeltaPhi(a, b Vec) float64 {
	dphi := math.Abs(a.Phi() - b.Phi())
	if dphi > math.Pi {
		dphi = 2*math.Pi - dphi
	}
	return dphi
}

// DeltaR returns the angular separation sqrt(deta^2 + dphi^2).
func DeltaR(a, b Vec) float64 {
	deta := a.Eta() - b.Eta()
	dphi := DeltaPhi(a, b)
	return math.Hypot(deta, dphi)
}

// InvariantMass returns the invariant mass of the summed system a + b.
func InvariantMass(a, b Vec) float64 {
	return a.Add(b).M()
}
