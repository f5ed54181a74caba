// Package halostore implements the halo store (component C2): the
// per-process collection of halos and their particle-id sets for the
// two active snapshots (current=0, previous=1), plus the particle->
// halo inverted index used by the map-join progenitor search.
package halostore

import (
	"sort"

	"github.com/EdoardoCarlesi/MetroCpp/treepb"
	"github.com/grailbio/base/log"
)

// Current and Previous name the two active snapshot slots, per
// spec.md §3.
const (
	Current  = 0
	Previous = 1
)

type snapshot struct {
	halos    []treepb.Halo
	parts    []*treepb.ParticleSet
	byID     map[uint64]int
	inverted *InvertedIndex

	// buffer holds halos replicated from neighbouring processes by
	// the buffer-exchange protocol (component C3): ghost copies of
	// halos near this process's owned slab boundary. Referenced via
	// treepb.BufferRef rather than by raw index (spec.md §4.3, §9).
	bufHalos []treepb.Halo
	bufParts []*treepb.ParticleSet
	bufByID  map[uint64]int
}

func newSnapshot() *snapshot {
	return &snapshot{
		byID:     make(map[uint64]int),
		bufByID:  make(map[uint64]int),
		inverted: newInvertedIndex(),
	}
}

// Store holds the two active snapshot slots for one process.
type Store struct {
	nPTypes int
	slots   [2]*snapshot
}

// NewStore returns an empty store tracking nPTypes particle types
// (the aggregate slot is separate, per spec.md §3).
func NewStore(nPTypes int) *Store {
	s := &Store{nPTypes: nPTypes}
	s.slots[Current] = newSnapshot()
	s.slots[Previous] = newSnapshot()
	return s
}

func (s *Store) slot(i int) *snapshot {
	if i != Current && i != Previous {
		log.Fatalf("halostore: invalid slot %d", i)
	}
	return s.slots[i]
}

// Append adds a halo and its particle set to slot i, sorting particle
// ids ascending per type on insertion (spec.md §4.2's invariant), and
// returns the halo's local index within the slot.
func (s *Store) Append(i int, h treepb.Halo, ps *treepb.ParticleSet) int {
	snap := s.slot(i)
	for ptype, ids := range ps.ByType {
		sorted := append([]uint64(nil), ids...)
		sort.Slice(sorted, func(a, b int) bool { return sorted[a] < sorted[b] })
		ps.ByType[ptype] = sorted
	}
	idx := len(snap.halos)
	snap.halos = append(snap.halos, h)
	snap.parts = append(snap.parts, ps)
	snap.byID[h.ID] = idx
	return idx
}

// Clear empties slot i.
func (s *Store) Clear(i int) {
	s.slots[i] = newSnapshot()
}

// Swap moves slot Previous into slot Current and clears slot Previous,
// per the snapshot driver's step-boundary shift (spec.md §4.8/§5):
// slot Current's old contents are released first so peak memory stays
// at 2x a snapshot rather than 3x.
func (s *Store) Swap() {
	s.slots[Current] = nil // release before the move.
	s.slots[Current] = s.slots[Previous]
	s.slots[Previous] = newSnapshot()
}

// BuildInvertedIndex fills slot i's particle->halo inverted index from
// its current halos and particle sets.
func (s *Store) BuildInvertedIndex(i int) {
	snap := s.slot(i)
	snap.inverted.reset()
	for idx, ps := range snap.parts {
		haloID := snap.halos[idx].ID
		for ptype, ids := range ps.ByType {
			for _, pid := range ids {
				snap.inverted.add(treepb.OwnershipRecord{
					HaloID:       haloID,
					ParticleID:   pid,
					ParticleType: ptype,
				})
			}
		}
	}
}

// Inverted returns slot i's inverted index.
func (s *Store) Inverted(i int) *InvertedIndex {
	return s.slot(i).inverted
}

// Halos returns slot i's halo array. The returned slice aliases the
// store's internal state and must not be mutated by the caller.
func (s *Store) Halos(i int) []treepb.Halo {
	return s.slot(i).halos
}

// Halo returns a copy of the halo at local index idx in slot i.
func (s *Store) Halo(i, idx int) treepb.Halo {
	return s.slot(i).halos[idx]
}

// Particles returns the particle set of the halo at local index idx
// in slot i.
func (s *Store) Particles(i, idx int) *treepb.ParticleSet {
	return s.slot(i).parts[idx]
}

// IndexOf resolves a halo id to its local index in slot i.
func (s *Store) IndexOf(i int, haloID uint64) (int, bool) {
	idx, ok := s.slot(i).byID[haloID]
	return idx, ok
}

// Len returns the number of halos in slot i.
func (s *Store) Len(i int) int {
	return len(s.slot(i).halos)
}

// NPTypes returns the number of tracked particle types.
func (s *Store) NPTypes() int {
	return s.nPTypes
}

// AppendBuffer appends a ghost halo (replicated from another process)
// to slot i's buffer and returns its buffer-local index, for use with
// treepb.BufferRef.
func (s *Store) AppendBuffer(i int, h treepb.Halo, ps *treepb.ParticleSet) int {
	snap := s.slot(i)
	for ptype, ids := range ps.ByType {
		sorted := append([]uint64(nil), ids...)
		sort.Slice(sorted, func(a, b int) bool { return sorted[a] < sorted[b] })
		ps.ByType[ptype] = sorted
	}
	idx := len(snap.bufHalos)
	snap.bufHalos = append(snap.bufHalos, h)
	snap.bufParts = append(snap.bufParts, ps)
	snap.bufByID[h.ID] = idx
	return idx
}

// ClearBuffer empties slot i's ghost buffer.
func (s *Store) ClearBuffer(i int) {
	snap := s.slot(i)
	snap.bufHalos = nil
	snap.bufParts = nil
	snap.bufByID = make(map[uint64]int)
}

// FindAny resolves a halo id to a HaloRef in slot i, checking owned
// halos first and then the ghost buffer. This is how the progenitor
// search (component C4) turns a shared-particle's owner id, which may
// belong to a neighbouring process's slab, back into a halo it can
// read locally.
func (s *Store) FindAny(i int, haloID uint64) (treepb.HaloRef, bool) {
	snap := s.slot(i)
	if idx, ok := snap.byID[haloID]; ok {
		return treepb.LocalRef(idx), true
	}
	if idx, ok := snap.bufByID[haloID]; ok {
		return treepb.BufferRef(idx), true
	}
	return treepb.HaloRef{}, false
}

// BufferLen returns the number of ghost halos in slot i's buffer.
func (s *Store) BufferLen(i int) int {
	return len(s.slot(i).bufHalos)
}

// Resolve dereferences a HaloRef against slot i, returning the
// referenced halo and its particle set.
func (s *Store) Resolve(i int, ref treepb.HaloRef) (treepb.Halo, *treepb.ParticleSet) {
	snap := s.slot(i)
	if ref.Kind == treepb.RefBuffer {
		return snap.bufHalos[ref.Idx], snap.bufParts[ref.Idx]
	}
	return snap.halos[ref.Idx], snap.parts[ref.Idx]
}
