// Package config defines the runtime configuration recognized by the
// snapshot driver (spec.md §6), in the same flat Opts-struct-with-
// defaults style the teacher uses for its own run options.
package config

// Topology selects between a full, periodic simulation box and a
// single zoomed-in region.
type Topology int

const (
	// FullBox is the spatially-decomposed, multi-process topology.
	FullBox Topology = iota
	// ZoomIn is the single-process, non-periodic topology.
	ZoomIn
)

// ProgenitorMode selects the progenitor-search algorithm (component C4).
type ProgenitorMode int

const (
	// MapJoin is the particle-id map join, the preferred algorithm.
	MapJoin ProgenitorMode = iota
	// DirectCompare is the direct set-intersection fallback.
	DirectCompare
)

// RunMode names the runMode values 0, 1 and 2 of spec.md §6. Neither
// the engine nor cmd/mergertree reads it: every run builds its trees
// from the catalogs starting at the first snapshot, and no persisted
// clean-tree stream is re-ingested.
type RunMode int

const (
	// FreshRun is runMode 0, building trees from the catalogs.
	FreshRun RunMode = iota
	// ResumeRun is runMode 1.
	ResumeRun
	// AppendRun is runMode 2.
	AppendRun
)

// Opts is the full set of recognized runtime configuration keys
// (spec.md §6).
type Opts struct {
	// NGrid is the spatial-grid resolution per axis (component C1).
	NGrid int
	// BoxSize is the simulation box side length, in the position
	// unit halos are read in.
	BoxSize float64
	// NChunksPerFile is the number of catalog chunks per snapshot,
	// for runs that split one snapshot across multiple files.
	NChunksPerFile int

	// MinPartHalo is the orphan-promotion threshold (component C7): a
	// halo is carried as a token only if its dark-matter particle count
	// exceeds it. Halos below it are still read and matched.
	MinPartHalo int
	// MinPartCmp is the minimum shared-particle count for a
	// progenitor candidate to survive (component C4).
	MinPartCmp int

	// DMaxFactor scales CompareHalos' velocity- and radius-based
	// search radius in full-box mode.
	DMaxFactor float64
	// FVel further scales that radius by the halos' relative speed.
	FVel float64
	// Margin is the external-interface config key of spec.md §6's
	// literal rSearch formula for direct mode. It is not used to size
	// the actual grid query (see progenitor.directSearchRadius):
	// rVir(hB) in that formula isn't known until after the candidate
	// has been fetched from the grid, so the query itself uses a
	// fixed conservative radius and CompareHalos does the precise
	// filtering once both halos are in hand.
	Margin float64

	// NPTypes is the number of particle types tracked (excluding the
	// trailing aggregate slot).
	NPTypes int

	Topology       Topology
	ProgenitorMode ProgenitorMode
	RunMode        RunMode

	// NOrphanSteps is not read by the engine: CompareHalos widens its
	// radius by each token halo's own OrphanStep count instead.
	NOrphanSteps int
	// MaxOrphanAge is the number of steps a token halo may be carried
	// before it expires (component C7).
	MaxOrphanAge int

	// GhostWidth is the buffer-exchange ghost-region width (component C3).
	GhostWidth float64

	PathInput  string
	HaloPrefix string
	HaloSuffix string
	PartSuffix string
}

// Default returns the original's baseline configuration: a modest
// full-box run with the map-join progenitor search, matching the
// values implied throughout spec.md's examples.
func Default() Opts {
	return Opts{
		NGrid:          64,
		BoxSize:        100.0,
		NChunksPerFile: 1,
		MinPartHalo:    20,
		MinPartCmp:     5,
		DMaxFactor:     2.0,
		FVel:           1.0,
		Margin:         0.5,
		NPTypes:        2,
		Topology:       FullBox,
		ProgenitorMode: MapJoin,
		RunMode:        FreshRun,
		NOrphanSteps:   1,
		MaxOrphanAge:   5,
		GhostWidth:     2.0,
		HaloPrefix:     "halos_",
		HaloSuffix:     "AHF_halos",
		PartSuffix:     "AHF_particles",
	}
}
