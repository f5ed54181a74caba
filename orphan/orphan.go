// Package orphan implements the orphan tracker (component C7): halos
// that lost every real progenitor are carried forward as "token"
// halos for a bounded number of steps, so a temporarily-disrupted
// halo (one that passes behind another along the line of sight, or
// is briefly tidally disrupted) can still reconnect to its history
// instead of starting a new, truncated branch.
package orphan

import (
	"bytes"
	"encoding/gob"
	"sort"

	"github.com/EdoardoCarlesi/MetroCpp/treepb"
	"github.com/golang/snappy"
)

// Tracker holds every halo currently carried as a token, keyed by its
// original halo id.
type Tracker struct {
	nPTypes      int
	minPartHalo  int
	maxOrphanAge int
	entries      map[uint64]*tokenEntry
}

type tokenEntry struct {
	halo       treepb.Halo // IsToken is always true; OrphanStep tracks age.
	compressed []byte      // snappy-compressed gob encoding of the particle set at promotion time.
	age        int
	// freshThisStep marks an entry Promote just created, so the
	// Step call that promoted it doesn't also age it: AgeAndExpire
	// runs once per step, after the promotion loop, and an entry
	// promoted this step has already had its one increment for the
	// step via Promote's age:1.
	freshThisStep bool
}

// NewTracker returns an empty tracker. minPartHalo is the promotion
// threshold of spec.md §4.7 (a halo below it is too small to bother
// carrying); maxOrphanAge bounds how many steps a token can live
// before it expires.
func NewTracker(nPTypes, minPartHalo, maxOrphanAge int) *Tracker {
	return &Tracker{
		nPTypes:      nPTypes,
		minPartHalo:  minPartHalo,
		maxOrphanAge: maxOrphanAge,
		entries:      make(map[uint64]*tokenEntry),
	}
}

// Eligible reports whether a descendant with no retained progenitor
// qualifies for promotion to a token halo: spec.md §4.7 requires both
// "zero retained progenitors" (the caller already knows this, since it
// is only asked to promote orphans) and nDM over minPartHalo, to avoid
// carrying noise-level halos indefinitely.
func (t *Tracker) Eligible(halo treepb.Halo) bool {
	return int(halo.NDM()) > t.minPartHalo
}

// Promote starts (or restarts) carrying halo as a token, snapshotting
// its particle set so later steps can still compute shared-particle
// counts against it. The particle set is compressed because tokens
// can persist across many steps and the tracker holds one per carried
// halo for the tracker's lifetime.
func (t *Tracker) Promote(halo treepb.Halo, parts *treepb.ParticleSet) error {
	compressed, err := compressParticles(parts)
	if err != nil {
		return err
	}
	halo.IsToken = true
	halo.OrphanStep = 1
	t.entries[halo.ID] = &tokenEntry{halo: halo, compressed: compressed, age: 1, freshThisStep: true}
	return nil
}

// Reconnect drops haloID's token: the orphan tracker considers a halo
// reconnected the moment the progenitor search finds it a real match
// again (spec.md §4.7's Token -> Live transition), regardless of how
// many steps it spent as a token.
func (t *Tracker) Reconnect(haloID uint64) {
	delete(t.entries, haloID)
}

// Tokens returns every currently-carried token as a (halo, particle
// set) pair, sorted by halo id for deterministic enumeration order in
// the progenitor search that follows. Each halo's OrphanStep reflects
// its current age, which component C4's CompareHalos uses to widen
// its search radius for long-carried tokens.
func (t *Tracker) Tokens() ([]treepb.Halo, []*treepb.ParticleSet, error) {
	ids := make([]uint64, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	halos := make([]treepb.Halo, 0, len(ids))
	parts := make([]*treepb.ParticleSet, 0, len(ids))
	for _, id := range ids {
		e := t.entries[id]
		ps, err := decompressParticles(e.compressed)
		if err != nil {
			return nil, nil, err
		}
		halos = append(halos, e.halo)
		parts = append(parts, ps)
	}
	return halos, parts, nil
}

// AgeAndExpire increments every surviving token's age by one step and
// evicts (returning their ids) any token that has exceeded
// maxOrphanAge without reconnecting. A token Promote created earlier
// in the same step is skipped once (its freshThisStep flag is cleared
// instead): it already carries age 1 from promotion, and without this
// skip the promoting Step call would age it to 2 before the caller
// ever observes nOrphanSteps=1 (spec.md §4.7/S3).
func (t *Tracker) AgeAndExpire() []uint64 {
	var expired []uint64
	for id, e := range t.entries {
		if e.freshThisStep {
			e.freshThisStep = false
			continue
		}
		e.age++
		e.halo.OrphanStep = e.age
		if e.age > t.maxOrphanAge {
			expired = append(expired, id)
			delete(t.entries, id)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i] < expired[j] })
	return expired
}

// Len returns the number of tokens currently carried.
func (t *Tracker) Len() int {
	return len(t.entries)
}

func compressParticles(ps *treepb.ParticleSet) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(ps.ByType); err != nil {
		return nil, err
	}
	return snappy.Encode(nil, buf.Bytes()), nil
}

func decompressParticles(compressed []byte) (*treepb.ParticleSet, error) {
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, err
	}
	ps := treepb.NewParticleSet()
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&ps.ByType); err != nil {
		return nil, err
	}
	return ps, nil
}
