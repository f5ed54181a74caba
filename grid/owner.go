package grid

import (
	"github.com/biogo/store/llrb"
)

// patchKey orders patches by their starting axis cell, the same way
// the teacher's bampair.ShardInfo orders shards by (refID, start) to
// answer "which shard owns this coordinate" with a Floor query.
type patchKey struct {
	axisStart int
	patch     Patch
}

// Compare implements llrb.Comparable.
func (k patchKey) Compare(c2 llrb.Comparable) int {
	return k.axisStart - c2.(patchKey).axisStart
}

// OwnerIndex answers "which process owns this axis cell" without
// communication, once every process has computed the same patch list
// via FindPatchOnTask.
type OwnerIndex struct {
	byStart llrb.Tree
	size    int
}

// NewOwnerIndex builds an index over patches, which must be the
// output of FindPatchOnTask (contiguous, non-overlapping, sorted).
func NewOwnerIndex(patches []Patch) *OwnerIndex {
	idx := &OwnerIndex{size: len(patches)}
	for _, p := range patches {
		idx.byStart.Insert(patchKey{axisStart: p.AxisStart, patch: p})
	}
	return idx
}

// OwnerOf returns the rank owning the given decomposition-axis cell
// coordinate, wrapping periodically into [0, nGrid).
func (idx *OwnerIndex) OwnerOf(axisCoord, nGrid int) int {
	c := axisCoord % nGrid
	if c < 0 {
		c += nGrid
	}
	floor := idx.byStart.Floor(patchKey{axisStart: c})
	if floor == nil {
		return 0
	}
	return floor.(patchKey).patch.Rank
}
