// Package jec models jet-energy-correction uncertainties. The analysis
// layer consumes the Provider interface when deriving a systematically
// shifted event view; TableProvider is the standard implementation,
// driven by per-source relative-uncertainty tables binned in |eta|.
package jec

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/hh-analysis/eventview/internal/analysis/p4"
)

// ErrUnknownSource is returned when a shift is requested for an
// uncertainty source the provider has no table for.
var ErrUnknownSource = errors.New("unknown jet uncertainty source")

// Source names one jet-energy uncertainty source.
type Source string

// Standard uncertainty sources. Total is the quadrature sum the
// producer publishes as a single table row set.
const (
	SourceTotal       Source = "Total"
	SourceAbsolute    Source = "Absolute"
	SourceRelativeBal Source = "RelativeBal"
	SourceFlavorQCD   Source = "FlavorQCD"
	SourcePileUp      Source = "PileUp"
)

// Scale selects the direction of a systematic variation.
type Scale int

const (
	ScaleDown    Scale = -1
	ScaleCentral Scale = 0
	ScaleUp      Scale = +1
)

// String returns the conventional suffix for the scale.
func (s Scale) String() string {
	switch s {
	case ScaleDown:
		return "Down"
	case ScaleUp:
		return "Up"
	default:
		return "Central"
	}
}

// Provider applies one uncertainty shift to a jet collection and
// propagates the momentum difference into the missing-energy vector.
// Implementations must be pure: the input slices are not modified.
type Provider interface {
	ApplyShift(jets []p4.Vec, source Source, scale Scale, otherJets []p4.Vec, met p4.Vec) ([]p4.Vec, p4.Vec, error)
}

// TableRow holds the relative uncertainty of one source within one
// |eta| bin. Bins are [EtaMin, EtaMax).
type TableRow struct {
	Source      Source
	EtaMin      float64
	EtaMax      float64
	RelativeUnc float64
}

// TableProvider is a Provider backed by static uncertainty tables.
type TableProvider struct {
	rows map[Source][]TableRow
}

// NewTableProvider builds a provider from uncertainty rows. Rows are
// grouped by source and kept sorted by EtaMin for lookup.
func NewTableProvider(rows []TableRow) *TableProvider {
	p := &TableProvider{rows: make(map[Source][]TableRow)}
	for _, r := range rows {
		p.rows[r.Source] = append(p.rows[r.Source], r)
	}
	for src := range p.rows {
		sort.Slice(p.rows[src], func(i, j int) bool {
			return p.rows[src][i].EtaMin < p.rows[src][j].EtaMin
		})
	}
	return p
}

// Sources lists the uncertainty sources the provider has tables for,
// in sorted order.
func (p *TableProvider) Sources() []Source {
	out := make([]Source, 0, len(p.rows))
	for src := range p.rows {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// uncertainty returns the relative uncertainty of source at |eta|.
// |eta| beyond the last bin clamps to the last bin, matching how the
// upstream tables extend their edges.
func (p *TableProvider) uncertainty(src Source, absEta float64) (float64, error) {
	rows, ok := p.rows[src]
	if !ok || len(rows) == 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSource, src)
	}
	for _, r := range rows {
		if absEta >= r.EtaMin && absEta < r.EtaMax {
			return r.RelativeUnc, nil
		}
	}
	return rows[len(rows)-1].RelativeUnc, nil
}

// ApplyShift scales every jet by (1 + scale*u(|eta|)) and subtracts the
// summed transverse-momentum difference of all shifted jets (candidate
// and other) from the missing-energy vector. The MET longitudinal and
// mass terms are preserved. ScaleCentral returns the inputs unchanged
// (copied).
func (p *TableProvider) ApplyShift(jets []p4.Vec, source Source, scale Scale, otherJets []p4.Vec, met p4.Vec) ([]p4.Vec, p4.Vec, error) {
	corrected := make([]p4.Vec, len(jets))
	copy(corrected, jets)
	if scale == ScaleCentral {
		return corrected, met, nil
	}

	var dpx, dpy float64
	shift := func(v p4.Vec) (p4.Vec, error) {
		u, err := p.uncertainty(source, math.Abs(v.Eta()))
		if err != nil {
			return v, err
		}
		s := v.Scale(1 + float64(scale)*u)
		dpx += s.Px() - v.Px()
		dpy += s.Py() - v.Py()
		return s, nil
	}

	for i, v := range corrected {
		s, err := shift(v)
		if err != nil {
			return nil, met, err
		}
		corrected[i] = s
	}
	for _, v := range otherJets {
		if _, err := shift(v); err != nil {
			return nil, met, err
		}
	}

	mpx, mpy := met.Px()-dpx, met.Py()-dpy
	m := met.M()
	e := math.Sqrt(mpx*mpx + mpy*mpy + met.Pz()*met.Pz() + m*m)
	return corrected, p4.PxPyPzE(mpx, mpy, met.Pz(), e), nil
}
