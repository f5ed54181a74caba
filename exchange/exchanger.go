package exchange

import (
	"context"
	"fmt"

	"github.com/EdoardoCarlesi/MetroCpp/grid"
	"github.com/EdoardoCarlesi/MetroCpp/halostore"
	"github.com/EdoardoCarlesi/MetroCpp/treepb"
)

// Exchanger runs the buffer-exchange protocol of spec.md §4.3 for one
// snapshot slot: determine the ghost region, build per-neighbour
// batches, exchange them, and decode the results into the store's
// buffer.
type Exchanger struct {
	GhostWidth float64
}

// Run fills store's buffer for slot i from every other rank's ghost
// contribution. patches must be the whole-cluster patch list from
// grid.Grid.FindPatchOnTask, identical on every rank.
func (e *Exchanger) Run(ctx context.Context, comm Communicator, g *grid.Grid, store *halostore.Store, i int, patches []grid.Patch) error {
	rank := comm.Rank()
	nGrid := g.NGrid()

	outgoing := make(map[int][]byte, len(patches)-1)
	for _, p := range patches {
		if p.Rank == rank {
			continue
		}
		batch := e.ghostBatchFor(g, store, i, p, nGrid)
		frame, err := encodeBatch(batch)
		if err != nil {
			return fmt.Errorf("exchange: encode batch for rank %d: %w", p.Rank, err)
		}
		outgoing[p.Rank] = frame
	}

	incoming, err := comm.Exchange(ctx, outgoing)
	if err != nil {
		// Communication failure: fatal for the step, per spec.md §7.
		return fmt.Errorf("exchange: buffer exchange failed: %w", err)
	}

	store.ClearBuffer(i)
	for _, frame := range incoming {
		if len(frame) == 0 {
			continue // An empty frame carries no ghosts; it is skipped without logging.
		}
		batch, err := decodeBatch(frame)
		if err != nil {
			return fmt.Errorf("exchange: decode incoming batch: %w", err)
		}
		for _, wh := range batch.Halos {
			h, ps := fromWireHalo(wh)
			store.AppendBuffer(i, h, ps)
		}
	}
	return nil
}

// ghostBatchFor collects the halos in slot i that lie within
// GhostWidth of neighbour's owned slab — i.e. the halos that would be
// of interest to that neighbour, per spec.md §4.3 step 2.
func (e *Exchanger) ghostBatchFor(g *grid.Grid, store *halostore.Store, i int, neighbour grid.Patch, nGrid int) haloBatch {
	cellRadius := int(e.GhostWidth/g.CellSize()) + 1
	lo := mod(neighbour.AxisStart-cellRadius, nGrid)
	hi := mod(neighbour.AxisEnd+cellRadius-1, nGrid)

	var batch haloBatch
	halos := store.Halos(i)
	for idx := range halos {
		ps := store.Particles(i, idx)
		axisCoord := g.AxisCoord(halos[idx].Position)
		if inWrappedRange(axisCoord, lo, hi, nGrid) {
			batch.Halos = append(batch.Halos, toWireHalo(halos[idx], ps))
		}
	}
	return batch
}

func mod(x, n int) int {
	x %= n
	if x < 0 {
		x += n
	}
	return x
}

// inWrappedRange reports whether c lies in the cyclic interval
// [lo, hi] on a ring of size n (lo may be greater than hi, denoting a
// range that wraps around zero).
func inWrappedRange(c, lo, hi, n int) bool {
	if lo <= hi {
		return c >= lo && c <= hi
	}
	return c >= lo || c <= hi
}

// ResolveHaloID returns the halo id a HaloRef points to, local or
// buffered, without exposing the underlying storage slice.
func ResolveHaloID(store *halostore.Store, slot int, ref treepb.HaloRef) uint64 {
	h, _ := store.Resolve(slot, ref)
	return h.ID
}
