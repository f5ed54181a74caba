package progenitor

import (
	"github.com/EdoardoCarlesi/MetroCpp/grid"
	"github.com/EdoardoCarlesi/MetroCpp/halostore"
)

// directSearchRadius returns a fixed, conservative grid-query radius
// for Direct mode: the full width of the periodic box the grid
// covers, so the query is guaranteed to reach every halo in it
// regardless of the candidate's own rVir, velocity or (for orphan
// tokens) OrphanStep widening. CompareHalos' true admission radius
// depends on all of those, none of which are known until the
// candidate has actually been fetched from the grid, so sizing the
// query off the halo being searched from (hA) alone can undershoot
// and silently drop valid candidates that CompareHalos would
// otherwise have admitted. The original's direct-comparison path has
// the identical problem and resolves it the same way: query a single
// large, fixed radius up front (original_source/src/MergerTree.cpp's
// FindProgenitors uses a literal radiusSearchMax=5000.0), then let
// CompareHalos do the real, precise filtering as a second pass. This
// port derives that radius from the grid itself — rather than
// reusing the original's literal constant — because ListNearbyHalos
// wraps periodically: a radius of the grid's own box width already
// reaches every cell, and a larger one adds no coverage.
func directSearchRadius(g *grid.Grid) float64 {
	return g.CellSize() * float64(g.NGrid())
}

// searchDirect is the fallback algorithm (spec.md §4.4 mode B), used
// when no particle-id map join is available (e.g. catalogs without a
// stable particle id column). For each descendant it queries the
// spatial grid built over progSlot for nearby candidates within
// directSearchRadius, applies CompareHalos to prune them precisely,
// and then intersects the two halos' particle-id lists directly.
func searchDirect(store *halostore.Store, g *grid.Grid, descSlot, progSlot int, opts Options) Result {
	acc := newAccumulator(opts.NPTypes)
	radius := directSearchRadius(g)

	for descIdx := 0; descIdx < store.Len(descSlot); descIdx++ {
		hA := store.Halo(descSlot, descIdx)
		psA := store.Particles(descSlot, descIdx)

		for _, progIdx := range g.ListNearbyHalos(hA.Position, radius) {
			hB := store.Halo(progSlot, progIdx)
			if !opts.CompareHalos(hA, hB) {
				continue
			}
			psB := store.Particles(progSlot, progIdx)
			for _, ptype := range sortedTypes(psA) {
				idsB, ok := psB.ByType[ptype]
				if !ok {
					continue
				}
				n := intersectSortedCount(psA.ByType[ptype], idsB)
				if n == 0 {
					continue
				}
				for k := 0; k < n; k++ {
					acc.add(descIdx, hB.ID, ptype)
				}
			}
		}
	}
	return acc.result(store, progSlot, opts.MinPartCmp)
}

// intersectSortedCount returns the number of shared elements between
// two ascending, duplicate-free sorted slices.
func intersectSortedCount(a, b []uint64) int {
	i, j, n := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			n++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return n
}
