package progenitor

import (
	"sort"

	"github.com/EdoardoCarlesi/MetroCpp/grid"
	"github.com/EdoardoCarlesi/MetroCpp/halostore"
	"github.com/EdoardoCarlesi/MetroCpp/treepb"
)

// Candidate is one (descendant, progenitor) link with its per-type
// shared-particle count, before merit ranking (component C5).
type Candidate struct {
	DescIdx     int
	ProgRef     treepb.HaloRef
	CountByType []int
}

// Total returns the sum of shared particles across all types.
func (c Candidate) Total() int {
	n := 0
	for _, v := range c.CountByType {
		n += v
	}
	return n
}

// Result is the full candidate list of one progenitor search pass,
// keyed by the descendant's local index and ordered, per descendant,
// in first-seen enumeration order (spec.md §4.4, §4.5 tie-break rule).
type Result struct {
	ByDescendant map[int][]Candidate
}

// Search runs the progenitor search between two snapshot slots of
// store: descSlot holds the descendants, progSlot the candidate
// progenitors. g is the spatial grid built over progSlot (only used
// by ModeDirect). Candidates with a total shared count <= opts.MinPartCmp
// are discarded. The same entry point serves both the forward pass
// (engine.Step: descSlot=Previous, progSlot=Current) and the backward
// pass used by the tree cleaner (descSlot=Current, progSlot=Previous), per spec.md
// §4.8 steps 4 and 6.
func Search(store *halostore.Store, g *grid.Grid, descSlot, progSlot int, opts Options) Result {
	switch opts.Mode {
	case ModeDirect:
		return searchDirect(store, g, descSlot, progSlot, opts)
	default:
		return searchMapJoin(store, descSlot, progSlot, opts)
	}
}

// accumulator tracks, for every (descendant, progenitor-id) pair, the
// per-type shared count and the order in which progenitors were first
// discovered for each descendant.
type accumulator struct {
	nPTypes int
	counts  map[int]map[uint64][]int
	order   map[int][]uint64
}

func newAccumulator(nPTypes int) *accumulator {
	return &accumulator{
		nPTypes: nPTypes,
		counts:  make(map[int]map[uint64][]int),
		order:   make(map[int][]uint64),
	}
}

func (a *accumulator) add(descIdx int, progID uint64, ptype int) {
	byProg, ok := a.counts[descIdx]
	if !ok {
		byProg = make(map[uint64][]int)
		a.counts[descIdx] = byProg
	}
	cnt, ok := byProg[progID]
	if !ok {
		cnt = make([]int, a.nPTypes)
		byProg[progID] = cnt
		a.order[descIdx] = append(a.order[descIdx], progID)
	}
	if ptype >= 0 && ptype < a.nPTypes {
		cnt[ptype]++
	}
}

// result resolves accumulated counts into a Result, dropping pairs at
// or below minPartCmp and resolving each surviving progenitor id to a
// HaloRef in progSlot (local or buffered).
func (a *accumulator) result(store *halostore.Store, progSlot, minPartCmp int) Result {
	out := Result{ByDescendant: make(map[int][]Candidate, len(a.order))}
	for descIdx, ids := range a.order {
		var cands []Candidate
		for _, progID := range ids {
			counts := a.counts[descIdx][progID]
			total := 0
			for _, c := range counts {
				total += c
			}
			if total <= minPartCmp {
				continue
			}
			ref, ok := store.FindAny(progSlot, progID)
			if !ok {
				continue // progenitor fell out of the buffer window, unrecoverable this step.
			}
			cands = append(cands, Candidate{DescIdx: descIdx, ProgRef: ref, CountByType: counts})
		}
		if len(cands) > 0 {
			out.ByDescendant[descIdx] = cands
		}
	}
	return out
}

func sortedTypes(ps *treepb.ParticleSet) []int {
	types := make([]int, 0, len(ps.ByType))
	for t := range ps.ByType {
		types = append(types, t)
	}
	sort.Ints(types)
	return types
}
