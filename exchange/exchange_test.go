package exchange

import (
	"context"
	"testing"

	"github.com/EdoardoCarlesi/MetroCpp/grid"
	"github.com/EdoardoCarlesi/MetroCpp/halostore"
	"github.com/EdoardoCarlesi/MetroCpp/treepb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireRoundTrip(t *testing.T) {
	h := treepb.Halo{ID: 42, NPart: []uint64{0, 10, 0}, Position: [3]float64{1, 2, 3}}
	ps := treepb.NewParticleSet()
	ps.ByType[treepb.DMType] = []uint64{1, 2, 3, 4, 5}

	frame, err := encodeBatch(haloBatch{Halos: []wireHalo{toWireHalo(h, ps)}})
	require.NoError(t, err)

	got, err := decodeBatch(frame)
	require.NoError(t, err)
	require.Len(t, got.Halos, 1)

	gotHalo, gotPS := fromWireHalo(got.Halos[0])
	assert.Equal(t, h.ID, gotHalo.ID)
	assert.Equal(t, h.Position, gotHalo.Position)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, gotPS.IDs(treepb.DMType))
}

func TestDecodeBatchRejectsCorruptFrame(t *testing.T) {
	h := treepb.Halo{ID: 1, NPart: []uint64{0, 1}}
	ps := treepb.NewParticleSet()
	frame, err := encodeBatch(haloBatch{Halos: []wireHalo{toWireHalo(h, ps)}})
	require.NoError(t, err)

	frame[0] ^= 0xFF // corrupt the compressed body.
	_, err = decodeBatch(frame)
	assert.Error(t, err)
}

func TestLocalCommunicatorExchangeIsEmpty(t *testing.T) {
	c := NewLocalCommunicator()
	incoming, err := c.Exchange(context.Background(), map[int][]byte{0: []byte("x")})
	require.NoError(t, err)
	assert.Empty(t, incoming)
	assert.Equal(t, 0, c.Rank())
	assert.Equal(t, 1, c.Size())
}

func TestExchangerRunOverLocalCommunicatorIsNoop(t *testing.T) {
	g := grid.Init(4, 100.0)
	store := halostore.NewStore(2)
	idx := store.Append(halostore.Previous, treepb.Halo{ID: 1, NPart: []uint64{0, 1}}, treepb.NewParticleSet())
	g.AssignToGrid(store.Halos(halostore.Previous)[idx].Position, idx)

	comm := NewLocalCommunicator()
	patches := g.FindPatchOnTask(comm.Size())

	e := &Exchanger{GhostWidth: 5.0}
	err := e.Run(context.Background(), comm, g, store, halostore.Previous, patches)
	require.NoError(t, err)
	assert.Equal(t, 0, store.BufferLen(halostore.Previous))
}

func TestInWrappedRange(t *testing.T) {
	assert.True(t, inWrappedRange(5, 2, 8, 10))
	assert.False(t, inWrappedRange(9, 2, 8, 10))
	// Wrapped interval [8, 2] on a ring of size 10 covers 8,9,0,1,2.
	assert.True(t, inWrappedRange(9, 8, 2, 10))
	assert.True(t, inWrappedRange(1, 8, 2, 10))
	assert.False(t, inWrappedRange(5, 8, 2, 10))
}
