// Package progenitor implements the progenitor search (component C4):
// two interchangeable algorithms that compute, for every descendant
// halo at snapshot 0, candidate progenitor links with shared-particle
// counts (spec.md §4.4).
package progenitor

import (
	"math"

	"github.com/EdoardoCarlesi/MetroCpp/treepb"
)

// Mode selects the comparison algorithm (spec.md §4.4).
type Mode int

const (
	// ModeMapJoin is the preferred particle-id map join.
	ModeMapJoin Mode = iota
	// ModeDirect is the direct set-intersection algorithm.
	ModeDirect
)

// Topology selects the rMax formula in CompareHalos (spec.md §4.4).
type Topology int

const (
	// Full is the spatially-decomposed, multi-process topology.
	Full Topology = iota
	// Zoom is the single-process, zoomed-in-region topology.
	Zoom
)

// Options configures both search modes.
type Options struct {
	Mode       Mode
	Topology   Topology
	NPTypes    int
	MinPartCmp int // a candidate is kept iff total shared count > MinPartCmp.
	DMaxFactor float64
	FVel       float64
	Margin     float64 // kept for the external config surface; see directSearchRadius in direct.go.
	BoxSize    float64 // 0 disables periodic wrap (zoom-in runs are not periodic).
}

func norm3(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// periodicDelta returns a-b on each axis, wrapped into [-box/2, box/2]
// when box > 0.
func periodicDelta(a, b [3]float64, box float64) [3]float64 {
	var d [3]float64
	for k := 0; k < 3; k++ {
		x := a[k] - b[k]
		if box > 0 {
			if x > box/2 {
				x -= box
			} else if x < -box/2 {
				x += box
			}
		}
		d[k] = x
	}
	return d
}

// distance returns the (periodic, if configured) Euclidean distance
// between two halo centres.
func (o Options) distance(a, b treepb.Halo) float64 {
	d := periodicDelta(a.Position, b.Position, o.BoxSize)
	return norm3(d)
}

// CompareHalos implements the heuristic prune of spec.md §4.4: it
// keeps the pair iff the current separation is below a velocity- and
// radius-scaled rMax, widened for orphan tokens by their age.
func (o Options) CompareHalos(hA, hB treepb.Halo) bool {
	var rMax float64
	if o.Topology == Zoom {
		rMax = 25 * (hA.RVir + hB.RVir)
	} else {
		rMax = (hA.RVir + hB.RVir) * o.DMaxFactor * (norm3(hA.Velocity) + norm3(hB.Velocity)) * o.FVel
	}
	if hA.IsToken && hA.OrphanStep > 0 {
		rMax *= float64(hA.OrphanStep)
	}
	if hB.IsToken && hB.OrphanStep > 0 {
		rMax *= float64(hB.OrphanStep)
	}
	return o.distance(hA, hB) < rMax
}
