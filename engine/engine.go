// Package engine implements the snapshot driver (component C8): it
// owns one process's halo store, grid and orphan tracker, and runs
// the per-step pipeline that turns two adjacent snapshots into a
// batch of cleaned merger-tree records.
package engine

import (
	"context"
	"fmt"

	"github.com/EdoardoCarlesi/MetroCpp/cleaner"
	"github.com/EdoardoCarlesi/MetroCpp/config"
	"github.com/EdoardoCarlesi/MetroCpp/exchange"
	"github.com/EdoardoCarlesi/MetroCpp/grid"
	"github.com/EdoardoCarlesi/MetroCpp/halostore"
	"github.com/EdoardoCarlesi/MetroCpp/merit"
	"github.com/EdoardoCarlesi/MetroCpp/orphan"
	"github.com/EdoardoCarlesi/MetroCpp/progenitor"
	"github.com/EdoardoCarlesi/MetroCpp/treepb"
)

// Engine holds everything one process needs to drive tree construction
// across snapshots: no process-wide statics, just this struct passed
// explicitly from caller to caller.
//
// Slot naming follows halostore's Current/Previous convention, which
// names slots by their role in the shift mechanics (Swap moves
// Previous into Current), not by real time: within one Step, slot
// Current holds the older, already-resolved snapshot (progenitor
// candidates) and slot Previous holds the snapshot just ingested this
// step (descendants). After Step shifts, the snapshot just processed
// becomes the reference for the following step.
type Engine struct {
	Opts      config.Opts
	Store     *halostore.Store
	Grid      *grid.Grid
	Comm      exchange.Communicator
	Exchanger *exchange.Exchanger
	Orphans   *orphan.Tracker
}

// New builds an Engine ready to ingest its first snapshot.
func New(opts config.Opts, comm exchange.Communicator) *Engine {
	return &Engine{
		Opts:      opts,
		Store:     halostore.NewStore(opts.NPTypes),
		Grid:      grid.Init(opts.NGrid, opts.BoxSize),
		Comm:      comm,
		Exchanger: &exchange.Exchanger{GhostWidth: opts.GhostWidth},
		Orphans:   orphan.NewTracker(opts.NPTypes, opts.MinPartHalo, opts.MaxOrphanAge),
	}
}

// Ingest loads a freshly-read snapshot's halos and particle sets as
// this step's descendant data (slot Previous).
func (e *Engine) Ingest(halos []treepb.Halo, parts map[uint64]*treepb.ParticleSet) {
	for _, h := range halos {
		ps := parts[h.ID]
		if ps == nil {
			ps = treepb.NewParticleSet()
		}
		e.Store.Append(halostore.Previous, h, ps)
	}
}

func (e *Engine) progenitorOptions() progenitor.Options {
	mode := progenitor.ModeMapJoin
	if e.Opts.ProgenitorMode == config.DirectCompare {
		mode = progenitor.ModeDirect
	}
	topo := progenitor.Full
	boxSize := e.Opts.BoxSize
	if e.Opts.Topology == config.ZoomIn {
		topo = progenitor.Zoom
		boxSize = 0 // a zoomed-in region is not periodic.
	}
	return progenitor.Options{
		Mode:       mode,
		Topology:   topo,
		NPTypes:    e.Opts.NPTypes,
		MinPartCmp: e.Opts.MinPartCmp,
		DMaxFactor: e.Opts.DMaxFactor,
		FVel:       e.Opts.FVel,
		Margin:     e.Opts.Margin,
		BoxSize:    boxSize,
	}
}

// Step runs the full per-snapshot pipeline (component C8's sequence):
// inject surviving orphan tokens, exchange buffer ghosts, search
// forward and backward, rank by merit, reconcile into a clean tree,
// update the orphan tracker, and shift the store for the next step.
// It returns one MergerTreeRecord per descendant (per halo in slot
// Previous before the shift).
func (e *Engine) Step(ctx context.Context) ([]treepb.MergerTreeRecord, error) {
	tokenHalos, tokenParts, err := e.Orphans.Tokens()
	if err != nil {
		return nil, fmt.Errorf("engine: load orphan tokens: %w", err)
	}
	for i, h := range tokenHalos {
		e.Store.Append(halostore.Current, h, tokenParts[i])
	}

	e.Grid.Reset()
	for idx, h := range e.Store.Halos(halostore.Current) {
		e.Grid.AssignToGrid(h.Position, idx)
	}
	patches := e.Grid.FindPatchOnTask(e.Comm.Size())
	if err := e.Exchanger.Run(ctx, e.Comm, e.Grid, e.Store, halostore.Current, patches); err != nil {
		return nil, fmt.Errorf("engine: buffer exchange: %w", err)
	}

	e.Store.BuildInvertedIndex(halostore.Current)
	e.Store.BuildInvertedIndex(halostore.Previous)

	popts := e.progenitorOptions()
	forward := progenitor.Search(e.Store, e.Grid, halostore.Previous, halostore.Current, popts)
	backGrid := e.Grid
	if popts.Mode == progenitor.ModeDirect {
		// The backward pass searches slot Previous, so direct mode needs
		// a grid built over that slot rather than over slot Current.
		backGrid = grid.Init(e.Opts.NGrid, e.Opts.BoxSize)
		for idx, h := range e.Store.Halos(halostore.Previous) {
			backGrid.AssignToGrid(h.Position, idx)
		}
	}
	backward := progenitor.Search(e.Store, backGrid, halostore.Current, halostore.Previous, popts)
	backwardBest := bestDescendantByProgenitor(e.Store, backward)

	resolveCurrent := func(ref treepb.HaloRef) treepb.Halo {
		h, _ := e.Store.Resolve(halostore.Current, ref)
		return h
	}
	progNDM := func(ref treepb.HaloRef) int {
		return int(resolveCurrent(ref).NDM())
	}

	matched := make(map[uint64]bool)
	records := make([]treepb.MergerTreeRecord, 0, e.Store.Len(halostore.Previous))
	for descIdx := 0; descIdx < e.Store.Len(halostore.Previous); descIdx++ {
		descHalo := e.Store.Halo(halostore.Previous, descIdx)
		ranked := merit.Rank(descHalo, forward.ByDescendant[descIdx], progNDM)
		rec := cleaner.Clean(descIdx, descHalo, ranked, backwardBest, resolveCurrent, e.Opts.NPTypes)
		for _, ref := range rec.IndexProgenitor {
			if !rec.IsOrphan && ref.Kind == treepb.RefLocal {
				matched[resolveCurrent(ref).ID] = true
			}
		}
		records = append(records, rec)
	}

	// A real (non-token) halo in the progenitor snapshot that nothing
	// claimed this step has effectively vanished: start carrying it
	// forward so a later snapshot still has a chance to reconnect to
	// it (spec's orphan promotion). A token that DID get claimed has
	// reconnected and drops out of the tracker.
	for idx := 0; idx < e.Store.Len(halostore.Current); idx++ {
		h := e.Store.Halo(halostore.Current, idx)
		if matched[h.ID] {
			if h.IsToken {
				e.Orphans.Reconnect(h.ID)
			}
			continue
		}
		if !h.IsToken && e.Orphans.Eligible(h) {
			if err := e.Orphans.Promote(h, e.Store.Particles(halostore.Current, idx)); err != nil {
				return nil, fmt.Errorf("engine: promote orphan %d: %w", h.ID, err)
			}
		}
	}
	e.Orphans.AgeAndExpire()

	e.Store.Swap()
	return records, nil
}

// bestDescendantByProgenitor resolves, for every local index in the
// progenitor snapshot (slot Current), the local index in the
// descendant snapshot (slot Previous) that backward search's merit
// ranking considers its single best match. Candidates resolved to a
// buffer ref are skipped: they can't be expressed as a comparable
// local index, so they never win the "best" slot (spec.md's mutual-
// best-match rule only applies across local refs; see cleaner.Clean).
func bestDescendantByProgenitor(store *halostore.Store, backward progenitor.Result) map[int]int {
	best := make(map[int]int, len(backward.ByDescendant))
	for progLocalIdx, cands := range backward.ByDescendant {
		progHalo := store.Halo(halostore.Current, progLocalIdx)
		ranked := merit.Rank(progHalo, cands, func(ref treepb.HaloRef) int {
			h, _ := store.Resolve(halostore.Previous, ref)
			return int(h.NDM())
		})
		for _, r := range ranked {
			if r.Candidate.ProgRef.Kind == treepb.RefLocal {
				best[progLocalIdx] = r.Candidate.ProgRef.Idx
				break
			}
		}
	}
	return best
}
