package analysis

import (
	"math"
	"sort"

	"github.com/hh-analysis/eventview/internal/analysis/p4"
)

// JetInfo pairs a jet candidate with the scalar tag it is ranked by.
type JetInfo struct {
	P4    p4.Vec
	Index int
	Tag   float64
}

// RankJets filters candidates by pt > ptCut and |eta| < etaCut and
// returns the survivors sorted by tag descending, with transverse
// momentum descending as tie-break and the original index as the final
// deterministic discriminator. The input slice is not modified.
func RankJets(jets []JetInfo, ptCut, etaCut float64) []JetInfo {
	ranked := make([]JetInfo, 0, len(jets))
	for _, j := range jets {
		if j.P4.Pt() <= ptCut {
			continue
		}
		if math.Abs(j.P4.Eta()) >= etaCut {
			continue
		}
		ranked = append(ranked, j)
	}
	sort.Slice(ranked, func(i, k int) bool {
		if ranked[i].Tag != ranked[k].Tag {
			return ranked[i].Tag > ranked[k].Tag
		}
		pi, pk := ranked[i].P4.Pt(), ranked[k].P4.Pt()
		if pi != pk {
			return pi > pk
		}
		return ranked[i].Index < ranked[k].Index
	})
	return ranked
}
