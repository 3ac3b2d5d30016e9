package p4

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPtEtaPhiMRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		pt   float64
		eta  float64
		phi  float64
		m    float64
	}{
		{"central jet", 45.0, 0.3, 1.2, 8.5},
		{"forward jet", 32.0, -3.9, -2.4, 6.0},
		{"massless", 18.0, 1.1, 0.0, 0.0},
		{"heavy system", 120.0, 0.0, 3.0, 125.0},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			v := PtEtaPhiM(tc.pt, tc.eta, tc.phi, tc.m)
			assert.InDelta(t, tc.pt, v.Pt(), 1e-9)
			assert.InDelta(t, tc.eta, v.Eta(), 1e-9)
			assert.InDelta(t, tc.phi, v.Phi(), 1e-9)
			assert.InDelta(t, tc.m, v.M(), 1e-6)
		})
	}
}

func TestAddAndInvariantMass(t *testing.T) {
	t.Parallel()

	// Back-to-back massless pair: invariant mass is 2*pt.
	a := PtEtaPhiM(50, 0, 0, 0)
	b := PtEtaPhiM(50, 0, math.Pi, 0)
	sum := a.Add(b)

	assert.InDelta(t, 0, sum.Pt(), 1e-9)
	assert.InDelta(t, 100, sum.M(), 1e-9)
	assert.InDelta(t, 100, InvariantMass(a, b), 1e-9)
}

func TestScalePreservesDirection(t *testing.T) {
	t.Parallel()

	v := PtEtaPhiM(40, 1.5, -0.7, 10)
	s := v.Scale(1.05)

	assert.InDelta(t, 40*1.05, s.Pt(), 1e-9)
	assert.InDelta(t, v.Eta(), s.Eta(), 1e-12)
	assert.InDelta(t, v.Phi(), s.Phi(), 1e-12)
	assert.InDelta(t, 10*1.05, s.M(), 1e-6)
}

func TestDeltaR(t *testing.T) {
	t.Parallel()

	a := PtEtaPhiM(30, 0.0, 0.1, 0)
	b := PtEtaPhiM(30, 0.0, -0.1, 0)
	assert.InDelta(t, 0.2, DeltaR(a, b), 1e-9)

	// Phi wrap-around: 3.1 and -3.1 are 2*pi-6.2 apart, not 6.2.
	c := PtEtaPhiM(30, 0.5, 3.1, 0)
	d := PtEtaPhiM(30, 0.5, -3.1, 0)
	require.InDelta(t, 2*math.Pi-6.2, DeltaPhi(c, d), 1e-9)
	assert.InDelta(t, 2*math.Pi-6.2, DeltaR(c, d), 1e-9)
}

func TestSpacelikeMassClampsToZero(t *testing.T) {
	t.Parallel()

	v := PxPyPzE(10, 0, 0, 9.9999999)
	assert.Equal(t, 0.0, v.M())
}
