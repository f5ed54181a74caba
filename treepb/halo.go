// Package treepb holds the data-model types shared by every other
// package in this module: halos, particle ownership records and the
// per-step merger-tree record. It plays the role the teacher's biopb
// package plays for BAM/PAM coordinates: a small, dependency-free leaf
// package that everything else imports.
//
// Unlike biopb, these types are hand-written rather than generated
// from a .proto file (see DESIGN.md), but they keep biopb's habit of
// adding small convenience methods next to otherwise plain structs.
package treepb

// DMType is the particle-type index conventionally used as the merit
// and orphan-eligibility reference species (dark matter).
const DMType = 1

// Halo is a single halo as read from (or synthesized for) one
// snapshot.
type Halo struct {
	ID       uint64
	HostID   uint64 // 0 means "no host" (top-level halo).
	Position [3]float64
	Velocity [3]float64
	RVir     float64
	Mass     float64

	// NPart is indexed by particle type 0..NPTypes-1, plus one
	// trailing aggregate slot at index NPTypes.
	NPart []uint64

	Spin       float64
	HiResFrac  float64
	IsToken    bool
	OrphanStep int // number of steps this halo has been carried as a token.
}

// NDM returns the dark-matter particle count used as the merit
// reference species.
func (h *Halo) NDM() uint64 {
	if DMType >= len(h.NPart) {
		return 0
	}
	return h.NPart[DMType]
}

// HasHost reports whether h is a subhalo.
func (h *Halo) HasHost() bool {
	return h.HostID != 0
}

// ParticleSet holds, for one halo, the particle ids it owns grouped by
// type and kept sorted ascending per type (an invariant relied upon by
// the direct set-intersection progenitor search).
type ParticleSet struct {
	ByType map[int][]uint64
}

// NewParticleSet returns an empty set.
func NewParticleSet() *ParticleSet {
	return &ParticleSet{ByType: make(map[int][]uint64)}
}

// IDs returns the sorted particle ids of the given type, or nil.
func (s *ParticleSet) IDs(ptype int) []uint64 {
	return s.ByType[ptype]
}

// Count returns the total number of particles across all types.
func (s *ParticleSet) Count() int {
	n := 0
	for _, ids := range s.ByType {
		n += len(ids)
	}
	return n
}

// OwnershipRecord is a (halo-id, particle-type) pair, as the catalog
// reader produces per particle line. The same particle id can appear
// in multiple ownership records when it belongs to several halos
// (substructure).
type OwnershipRecord struct {
	HaloID      uint64
	ParticleID  uint64
	ParticleType int
}
