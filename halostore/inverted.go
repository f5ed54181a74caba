package halostore

import (
	"encoding/binary"

	"github.com/EdoardoCarlesi/MetroCpp/treepb"
	"github.com/dgryski/go-farm"
)

// invertedShards is the fan-out of the particle->halo inverted index.
// The index is split into shards keyed by a fast hash of the particle
// id, the same high-volume-indexing role go-farm plays implicitly
// across the retrieved pack. Store.BuildInvertedIndex fills the shards
// sequentially.
const invertedShards = 16

// InvertedIndex maps a particle id to every ownership record for one
// snapshot (spec.md §3: "Particle->halo inverted index").
type InvertedIndex struct {
	shards [invertedShards]map[uint64][]treepb.OwnershipRecord
}

func newInvertedIndex() *InvertedIndex {
	idx := &InvertedIndex{}
	for i := range idx.shards {
		idx.shards[i] = make(map[uint64][]treepb.OwnershipRecord)
	}
	return idx
}

func shardFor(particleID uint64) int {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], particleID)
	return int(farm.Hash64(buf[:]) % invertedShards)
}

func (idx *InvertedIndex) add(rec treepb.OwnershipRecord) {
	s := shardFor(rec.ParticleID)
	idx.shards[s][rec.ParticleID] = append(idx.shards[s][rec.ParticleID], rec)
}

// Owners returns every ownership record for the given particle id, or
// nil if the id is not present in this snapshot's index (which also
// means no halo in this snapshot owns it, per spec.md §3's invariant).
func (idx *InvertedIndex) Owners(particleID uint64) []treepb.OwnershipRecord {
	return idx.shards[shardFor(particleID)][particleID]
}

func (idx *InvertedIndex) reset() {
	for i := range idx.shards {
		idx.shards[i] = make(map[uint64][]treepb.OwnershipRecord)
	}
}
