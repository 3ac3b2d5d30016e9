package jec

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hh-analysis/eventview/internal/analysis/p4"
)

func testProvider() *TableProvider {
	return NewTableProvider([]TableRow{
		{Source: SourceTotal, EtaMin: 0, EtaMax: 2.5, RelativeUnc: 0.02},
		{Source: SourceTotal, EtaMin: 2.5, EtaMax: 5.0, RelativeUnc: 0.05},
		{Source: SourceAbsolute, EtaMin: 0, EtaMax: 5.0, RelativeUnc: 0.01},
	})
}

func TestApplyShiftScalesJetsByEtaBin(t *testing.T) {
	t.Parallel()

	p := testProvider()
	jets := []p4.Vec{
		p4.PtEtaPhiM(100, 0.5, 0.0, 10), // central bin: 2%
		p4.PtEtaPhiM(40, 3.0, 1.0, 5),   // forward bin: 5%
	}
	met := p4.PtEtaPhiM(60, 0, -1.0, 0)

	corrected, _, err := p.ApplyShift(jets, SourceTotal, ScaleUp, nil, met)
	require.NoError(t, err)
	require.Len(t, corrected, 2)

	assert.InDelta(t, 102.0, corrected[0].Pt(), 1e-9)
	assert.InDelta(t, 42.0, corrected[1].Pt(), 1e-9)

	// Down shift mirrors the up shift.
	corrected, _, err = p.ApplyShift(jets, SourceTotal, ScaleDown, nil, met)
	require.NoError(t, err)
	assert.InDelta(t, 98.0, corrected[0].Pt(), 1e-9)
	assert.InDelta(t, 38.0, corrected[1].Pt(), 1e-9)
}

func TestApplyShiftPropagatesToMet(t *testing.T) {
	t.Parallel()

	p := testProvider()
	// One jet along +x, MET along -x: increasing the jet pt must
	// decrease MET px by the same amount.
	jets := []p4.Vec{p4.PtEtaPhiM(100, 0, 0, 0)}
	met := p4.PtEtaPhiM(50, 0, 3.141592653589793, 0)

	_, shiftedMet, err := p.ApplyShift(jets, SourceTotal, ScaleUp, nil, met)
	require.NoError(t, err)
	assert.InDelta(t, -52.0, shiftedMet.Px(), 1e-9)
	assert.InDelta(t, 0.0, shiftedMet.Py(), 1e-9)
	assert.InDelta(t, 0.0, shiftedMet.M(), 1e-6)
}

func TestApplyShiftIncludesOtherJetsInMetOnly(t *testing.T) {
	t.Parallel()

	p := testProvider()
	jets := []p4.Vec{p4.PtEtaPhiM(100, 0, 0, 0)}
	other := []p4.Vec{p4.PtEtaPhiM(30, 1.0, 1.5, 0)}
	met := p4.PtEtaPhiM(50, 0, -2.0, 0)

	withOther, metWith, err := p.ApplyShift(jets, SourceTotal, ScaleUp, other, met)
	require.NoError(t, err)
	without, metWithout, err := p.ApplyShift(jets, SourceTotal, ScaleUp, nil, met)
	require.NoError(t, err)

	// The corrected candidate jets are identical either way; only the
	// MET propagation sees the other jets.
	assert.Empty(t, cmp.Diff(without, withOther))
	assert.NotEqual(t, metWithout, metWith)
}

func TestApplyShiftCentralIsIdentity(t *testing.T) {
	t.Parallel()

	p := testProvider()
	jets := []p4.Vec{p4.PtEtaPhiM(80, -1.2, 0.4, 7)}
	met := p4.PtEtaPhiM(33, 0, 1.1, 0)

	corrected, shiftedMet, err := p.ApplyShift(jets, SourceTotal, ScaleCentral, nil, met)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(jets, corrected))
	assert.Equal(t, met, shiftedMet)
}

func TestApplyShiftPureInputsUntouched(t *testing.T) {
	t.Parallel()

	p := testProvider()
	jets := []p4.Vec{p4.PtEtaPhiM(100, 0.5, 0.0, 10)}
	orig := jets[0]
	met := p4.PtEtaPhiM(60, 0, -1.0, 0)

	_, _, err := p.ApplyShift(jets, SourceTotal, ScaleUp, nil, met)
	require.NoError(t, err)
	assert.Equal(t, orig, jets[0])
}

func TestApplyShiftUnknownSource(t *testing.T) {
	t.Parallel()

	p := testProvider()
	_, _, err := p.ApplyShift([]p4.Vec{p4.PtEtaPhiM(40, 0, 0, 0)}, Source("FlavorPureGluon"), ScaleUp, nil, p4.Vec{})
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestEtaBeyondLastBinClampsToEdge(t *testing.T) {
	t.Parallel()

	p := testProvider()
	jets := []p4.Vec{p4.PtEtaPhiM(40, 5.5, 0, 0)}
	corrected, _, err := p.ApplyShift(jets, SourceTotal, ScaleUp, nil, p4.Vec{})
	require.NoError(t, err)
	assert.InDelta(t, 42.0, corrected[0].Pt(), 1e-9)
}

func TestSources(t *testing.T) {
	t.Parallel()

	p := testProvider()
	assert.Equal(t, []Source{SourceAbsolute, SourceTotal}, p.Sources())
}
