// Package cleaner implements the tree cleaner (component C6): it
// reconciles a descendant's forward-ranked progenitor candidates
// against the backward search's per-progenitor best-descendant table,
// keeping only mutual-best-match edges, and emits a self-edge when a
// descendant has no surviving progenitor.
package cleaner

import (
	"github.com/EdoardoCarlesi/MetroCpp/merit"
	"github.com/EdoardoCarlesi/MetroCpp/treepb"
)

// Resolver dereferences a HaloRef produced by the progenitor search
// into the Halo it points to, local or buffered.
type Resolver func(treepb.HaloRef) treepb.Halo

// Clean builds the final MergerTreeRecord for one descendant.
//
// forward is the descendant's progenitor candidates, already ranked
// by merit (descending). backwardBest maps a local progenitor index
// (in the progenitor snapshot) to the local descendant index the
// backward search ranked highest for that progenitor; a forward edge
// is dropped when the progenitor's own best descendant is a different
// one (spec.md §4.6's mutual-best-match rule). A local progenitor with
// no entry in backwardBest is kept. Only local (non-buffer)
// progenitor refs participate in this check: a buffer-resolved
// progenitor is passed through unreconciled, since confirming mutual
// best-match for it would require the owning rank's own backward
// search result, which spec.md's per-step sequence has no round trip
// for.
//
// nPTypes sizes the returned record's type-major NCommon table.
func Clean(descIdx int, descHalo treepb.Halo, forward []merit.Ranked, backwardBest map[int]int, resolve Resolver, nPTypes int) treepb.MergerTreeRecord {
	rec := treepb.MergerTreeRecord{MainHalo: descHalo}
	rec.NCommon = make([][]int, nPTypes)

	for _, cand := range forward {
		ref := cand.Candidate.ProgRef
		if ref.Kind == treepb.RefLocal {
			if best, ok := backwardBest[ref.Idx]; ok && best != descIdx {
				continue
			}
		}
		progHalo := resolve(ref)
		rec.IDProgenitor = append(rec.IDProgenitor, progHalo.ID)
		rec.IndexProgenitor = append(rec.IndexProgenitor, ref)
		rec.ProgHalos = append(rec.ProgHalos, progHalo)
		for t := 0; t < nPTypes; t++ {
			n := 0
			if t < len(cand.Candidate.CountByType) {
				n = cand.Candidate.CountByType[t]
			}
			rec.NCommon[t] = append(rec.NCommon[t], n)
		}
	}

	if len(rec.IDProgenitor) == 0 {
		emitSelfEdge(&rec, nPTypes)
	}
	return rec
}

// emitSelfEdge records MainHalo as its own sole progenitor and marks
// the record IsOrphan, so an orphaned descendant's record has the same
// aligned-array shape as one with a real progenitor.
func emitSelfEdge(rec *treepb.MergerTreeRecord, nPTypes int) {
	rec.IDProgenitor = []uint64{rec.MainHalo.ID}
	rec.IndexProgenitor = []treepb.HaloRef{treepb.LocalRef(-1)} // self: no real index into either slot.
	rec.ProgHalos = []treepb.Halo{rec.MainHalo}
	rec.NCommon = make([][]int, nPTypes)
	for t := 0; t < nPTypes; t++ {
		n := 0
		if t < len(rec.MainHalo.NPart) {
			n = int(rec.MainHalo.NPart[t])
		}
		rec.NCommon[t] = []int{n}
	}
	rec.IsOrphan = true
}
