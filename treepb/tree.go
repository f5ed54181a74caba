package treepb

// RefKind tags whether a MergerTreeRecord candidate lives in the local
// halo array or in a process's ghost buffer. This replaces the
// original source's sign-bit convention (see DESIGN.md and spec.md
// §9's "Signed-index buffer convention" note): Kind, not the sign of
// the index, says which array a reference points into. The one
// negative index in use is LocalRef(-1), the placeholder the tree
// cleaner stores for an orphan's self-edge.
type RefKind uint8

const (
	// RefLocal indexes into a process's own halo array for the
	// snapshot under discussion.
	RefLocal RefKind = iota
	// RefBuffer indexes into a process's ghost buffer, i.e. a halo
	// replicated from a neighbouring process.
	RefBuffer
)

// HaloRef is a tagged reference to a halo, local or remote. It is the
// rewrite of the original's signed-index convention described in
// spec.md §4.3 and §9.
type HaloRef struct {
	Kind RefKind
	Idx  int
}

// LocalRef builds a reference into the local halo array.
func LocalRef(idx int) HaloRef { return HaloRef{Kind: RefLocal, Idx: idx} }

// BufferRef builds a reference into the ghost buffer.
func BufferRef(idx int) HaloRef { return HaloRef{Kind: RefBuffer, Idx: idx} }

// Encode reproduces the legacy signed-index encoding: non-negative for
// local halos, -(idx+1) for buffer halos. MergerTreeRecord.IndexProgenitor
// itself holds HaloRef values, and the persist package writes them as
// such; nothing in this module calls Encode.
func (r HaloRef) Encode() int {
	if r.Kind == RefBuffer {
		return -(r.Idx + 1)
	}
	return r.Idx
}

// DecodeRef parses the legacy signed-index encoding back into a
// HaloRef.
func DecodeRef(encoded int) HaloRef {
	if encoded < 0 {
		return BufferRef(-encoded - 1)
	}
	return LocalRef(encoded)
}

// MergerTreeRecord is the per-descendant-halo output of a single
// step: the descendant, its ranked candidate progenitors, and the
// shared-particle counts that produced the ranking.
type MergerTreeRecord struct {
	MainHalo Halo

	// IDProgenitor, IndexProgenitor and ProgHalos are aligned: index k
	// describes the k-th ranked candidate.
	IDProgenitor    []uint64
	IndexProgenitor []HaloRef
	ProgHalos       []Halo

	// NCommon[t][k] is the number of type-t particles shared between
	// MainHalo and the k-th candidate.
	NCommon [][]int

	// IsOrphan is true exactly when the arrays above contain a single
	// self-referential entry (MainHalo has no real progenitor).
	IsOrphan bool
}

// Clean resets r to an empty record, release-style, mirroring
// MergerTree::Clean in the original source.
func (r *MergerTreeRecord) Clean() {
	r.IDProgenitor = nil
	r.IndexProgenitor = nil
	r.ProgHalos = nil
	r.NCommon = nil
	r.IsOrphan = false
}

// NCandidates returns the number of ranked candidates attached to r.
func (r *MergerTreeRecord) NCandidates() int {
	return len(r.IDProgenitor)
}
