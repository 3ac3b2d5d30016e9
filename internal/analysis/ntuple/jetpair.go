package ntuple

// undefinedIndex is the sentinel slot value of an unselected jet pair.
// It is out of bounds for any jet collection, so an undefined pair can
// never pass the IsDefined check.
const undefinedIndex = int(^uint(0) >> 1)

// JetPair addresses two distinct jets of an event's jet collection.
// A pair is only meaningful relative to a collection size: validity
// requires distinct slots and both indices in bounds, not merely
// inequality with the sentinel.
type JetPair struct {
	First  int `json:"first"`
	Second int `json:"second"`
}

// UndefinedJetPair returns the sentinel pair with both slots equal and
// out of bounds.
func UndefinedJetPair() JetPair {
	return JetPair{First: undefinedIndex, Second: undefinedIndex}
}

// IsDefined reports whether both slots address distinct jets of a
// collection with nJets entries.
func (p JetPair) IsDefined(nJets int) bool {
	return p.First != p.Second && p.First >= 0 && p.First < nJets && p.Second >= 0 && p.Second < nJets
}

// Contains reports whether either slot equals i.
func (p JetPair) Contains(i int) bool {
	return p.First == i || p.Second == i
}

// PairIndex maps the pair to the cache key used by the upstream
// producer for kinematic-fit results. The mapping only needs to be
// consistent between producer and consumer; it enumerates ordered
// pairs row-major over the jet collection.
func (p JetPair) PairIndex(nJets int) int {
	return p.First*nJets + p.Second
}
