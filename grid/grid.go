// Package grid implements the spatial grid (component C1): assigning
// halos to cells of a periodic 3D grid and answering "which local
// halos are near this point" queries, plus the 1D slab decomposition
// used to assign grid cells to processes in full-box mode.
package grid

import (
	"math"

	"github.com/grailbio/base/log"
)

// Grid bins halo indices into nGrid^3 cells over a periodic cube of
// side boxSize. Cell (i,j,k) holds the local indices of halos whose
// position falls in that cell; "local" indices are caller-defined
// (typically an index into a halostore.Store snapshot slot).
type Grid struct {
	nGrid    int
	boxSize  float64
	cellSize float64
	cells    [][]int // flattened nGrid^3 table of halo indices.
}

// Init allocates the cell table and records cellSize = boxSize/nGrid,
// per spec.md §4.1.
func Init(nGrid int, boxSize float64) *Grid {
	if nGrid <= 0 {
		log.Fatalf("grid: nGrid must be positive, got %d", nGrid)
	}
	return &Grid{
		nGrid:    nGrid,
		boxSize:  boxSize,
		cellSize: boxSize / float64(nGrid),
		cells:    make([][]int, nGrid*nGrid*nGrid),
	}
}

// NGrid returns the per-axis cell count.
func (g *Grid) NGrid() int { return g.nGrid }

// CellSize returns boxSize/nGrid.
func (g *Grid) CellSize() float64 { return g.cellSize }

// cellCoord computes the (possibly out-of-range before wrap) cell
// index along one axis for a coordinate, via floor(p/cellSize) with
// periodic wrap.
func (g *Grid) cellCoord(p float64) int {
	c := int(math.Floor(p / g.cellSize))
	c %= g.nGrid
	if c < 0 {
		c += g.nGrid
	}
	return c
}

// CellOf returns the flattened cell index containing position x.
func (g *Grid) CellOf(x [3]float64) int {
	ix := g.cellCoord(x[0])
	iy := g.cellCoord(x[1])
	iz := g.cellCoord(x[2])
	return g.flatten(ix, iy, iz)
}

func (g *Grid) flatten(ix, iy, iz int) int {
	return (ix*g.nGrid+iy)*g.nGrid + iz
}

// AssignToGrid computes the cell for position x and appends
// haloIndex to it.
func (g *Grid) AssignToGrid(x [3]float64, haloIndex int) {
	c := g.CellOf(x)
	g.cells[c] = append(g.cells[c], haloIndex)
}

// Reset clears every cell's halo list without shrinking the
// underlying table, so the next snapshot's binning can reuse it.
func (g *Grid) Reset() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// wrapAxis returns the cell coordinate ic shifted by d on a periodic
// axis of length nGrid.
func wrapAxis(ic, d, nGrid int) int {
	c := (ic + d) % nGrid
	if c < 0 {
		c += nGrid
	}
	return c
}

// ListNearbyHalos returns, in cell-scan order (order-stable across
// calls with the same grid state), the local halo indices whose
// owning cell is within ceil(r/cellSize) cells of x's cell, wrapping
// periodically. Each cell is scanned at most once, so an index appears
// at most once even when the radius spans the whole box. This is the
// O(r^3/cellSize^3) neighbourhood enumeration spec.md §4.1 describes.
func (g *Grid) ListNearbyHalos(x [3]float64, r float64) []int {
	cellRadius := int(math.Ceil(r / g.cellSize))
	cx := g.cellCoord(x[0])
	cy := g.cellCoord(x[1])
	cz := g.cellCoord(x[2])

	lo, hi := -cellRadius, cellRadius
	if 2*cellRadius+1 > g.nGrid {
		lo, hi = 0, g.nGrid-1
	}

	var out []int
	for dx := lo; dx <= hi; dx++ {
		ix := wrapAxis(cx, dx, g.nGrid)
		for dy := lo; dy <= hi; dy++ {
			iy := wrapAxis(cy, dy, g.nGrid)
			for dz := lo; dz <= hi; dz++ {
				iz := wrapAxis(cz, dz, g.nGrid)
				out = append(out, g.cells[g.flatten(ix, iy, iz)]...)
			}
		}
	}
	return out
}

// Patch is the contiguous range of cell indices, along the
// decomposition axis, that one process owns.
type Patch struct {
	Rank      int
	AxisStart int // inclusive, cell coordinate along the decomposition axis.
	AxisEnd   int // exclusive.
}

// Contains reports whether the given axis-coordinate cell belongs to
// the patch.
func (p Patch) Contains(axisCoord int) bool {
	return axisCoord >= p.AxisStart && axisCoord < p.AxisEnd
}

// FindPatchOnTask computes a size-balanced 1D slab decomposition along
// axis 0 (the simplest correct choice per spec.md §4.1) for size
// processes, and returns every process's patch so any process can
// resolve "who owns this cell" without communication.
func (g *Grid) FindPatchOnTask(size int) []Patch {
	if size <= 0 {
		log.Fatalf("grid: communicator size must be positive, got %d", size)
	}
	patches := make([]Patch, size)
	base := g.nGrid / size
	rem := g.nGrid % size
	start := 0
	for rank := 0; rank < size; rank++ {
		width := base
		if rank < rem {
			width++
		}
		patches[rank] = Patch{Rank: rank, AxisStart: start, AxisEnd: start + width}
		start += width
	}
	return patches
}

// AxisCoord returns the decomposition-axis (axis 0) cell coordinate of
// position x.
func (g *Grid) AxisCoord(x [3]float64) int {
	return g.cellCoord(x[0])
}
