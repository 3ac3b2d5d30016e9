package ntuple

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUndefinedJetPair(t *testing.T) {
	t.Parallel()

	p := UndefinedJetPair()
	assert.False(t, p.IsDefined(0))
	assert.False(t, p.IsDefined(10))
	assert.False(t, p.IsDefined(undefinedIndex))
}

func TestJetPairIsDefined(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		pair  JetPair
		nJets int
		want  bool
	}{
		{"valid pair", JetPair{First: 0, Second: 1}, 4, true},
		{"equal slots", JetPair{First: 2, Second: 2}, 4, false},
		{"second out of bounds", JetPair{First: 0, Second: 4}, 4, false},
		{"first negative", JetPair{First: -1, Second: 1}, 4, false},
		{"half-defined", JetPair{First: 1, Second: undefinedIndex}, 4, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.pair.IsDefined(tc.nJets))
		})
	}
}

func TestJetPairContains(t *testing.T) {
	t.Parallel()

	p := JetPair{First: 1, Second: 3}
	assert.True(t, p.Contains(1))
	assert.True(t, p.Contains(3))
	assert.False(t, p.Contains(2))
}

func TestPairIndexDistinct(t *testing.T) {
	t.Parallel()

	// All ordered pairs of a 5-jet event map to distinct keys.
	const nJets = 5
	seen := make(map[int]JetPair)
	for i := 0; i < nJets; i++ {
		for j := 0; j < nJets; j++ {
			if i == j {
				continue
			}
			p := JetPair{First: i, Second: j}
			key := p.PairIndex(nJets)
			prev, dup := seen[key]
			assert.False(t, dup, "pair %v collides with %v on key %d", p, prev, key)
			seen[key] = p
		}
	}
}
