// Package merit implements the merit ranking (component C5): scoring
// and sorting the candidate progenitor links component C4 produces.
package merit

import (
	"sort"

	"github.com/EdoardoCarlesi/MetroCpp/progenitor"
	"github.com/EdoardoCarlesi/MetroCpp/treepb"
)

// Ranked is one scored candidate, carrying enough of the original
// enumeration position to apply the deterministic tie-break.
type Ranked struct {
	Candidate progenitor.Candidate
	Merit     float64
}

// tieBreakEpsilon is the per-position nudge (spec.md §4.5) that makes
// ties between equal-merit candidates resolve by enumeration order
// instead of by map/slice iteration order, which Go does not
// guarantee to be stable across runs.
const tieBreakEpsilon = 1e-5

// Rank scores every candidate of one descendant against its nDM and
// returns them sorted by descending merit. The descendant's
// dark-matter particle count comes from descHalo.NDM(); progNDM
// resolves the progenitor a Candidate references to its count.
func Rank(descHalo treepb.Halo, cands []progenitor.Candidate, progNDM func(treepb.HaloRef) int) []Ranked {
	out := make([]Ranked, len(cands))
	nA := float64(descHalo.NDM())
	for k, c := range cands {
		nCommonDM := float64(c.CountByType[treepb.DMType])
		nB := float64(progNDM(c.ProgRef))
		out[k] = Ranked{Candidate: c, Merit: score(nA, nB, nCommonDM, k)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Merit > out[j].Merit
	})
	return out
}

// score implements spec.md §4.5's merit formula: ratio is the larger
// halo's size over the smaller's, merit rewards a high common-particle
// fraction relative to that size ratio, and the tiny per-enumeration-
// position factor breaks exact ties deterministically.
func score(nA, nB, nCommonDM float64, enumerationIndex int) float64 {
	var ratio float64
	if nA > nB {
		ratio = nA / nB
	} else {
		ratio = nB / nA
	}
	merit := nCommonDM / (1.0001*ratio - 1.0)
	merit *= 1 + tieBreakEpsilon*float64(enumerationIndex)
	return merit
}
