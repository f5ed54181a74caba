/*Command mergertree drives merger-tree construction across a run's
  snapshots. It reads halo and particle catalogs from --path-input in
  snapshot order, builds one clean merger tree per step, and persists
  the result under --output.

  Usage: mergertree --path-input=/data/run42/ --snapshots=snaps.txt --redshifts=z.txt --output=/data/run42/trees
*/
package main

import (
	"context"
	"flag"

	"github.com/EdoardoCarlesi/MetroCpp/catalog"
	"github.com/EdoardoCarlesi/MetroCpp/config"
	"github.com/EdoardoCarlesi/MetroCpp/engine"
	"github.com/EdoardoCarlesi/MetroCpp/persist"
	"github.com/EdoardoCarlesi/MetroCpp/snapindex"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
)

var (
	pathInput   = flag.String("path-input", "", "directory holding the run's halo and particle catalogs")
	snapshots   = flag.String("snapshots", "", "plain-text file listing snapshot numbers in descending-redshift order")
	redshifts   = flag.String("redshifts", "", "plain-text file listing each snapshot's redshift")
	output      = flag.String("output", "", "directory to write clean-tree output under")
	nGrid       = flag.Int("ngrid", 64, "spatial grid resolution per axis")
	boxSize     = flag.Float64("box-size", 100.0, "simulation box side length")
	nPTypes     = flag.Int("nptypes", 2, "number of particle types tracked")
	minPartHalo = flag.Int("min-part-halo", 20, "minimum particle count for a tracked halo")
	minPartCmp  = flag.Int("min-part-cmp", 5, "minimum shared particle count for a progenitor candidate")
	zoomIn      = flag.Bool("zoom-in", false, "run in single-process zoomed-in topology instead of full-box")
	addrList    = flag.String("addrs", "", "comma-separated rank addresses for a multi-process full-box run")
	rank        = flag.Int("rank", 0, "this process's rank, when --addrs names more than one address")
)

func main() {
	shutdown := grail.Init()
	defer shutdown()

	if *pathInput == "" || *snapshots == "" || *redshifts == "" || *output == "" {
		log.Fatalf("mergertree: --path-input, --snapshots, --redshifts and --output are all required")
	}

	ctx := context.Background()
	index, err := snapindex.ReadFiles(ctx, *snapshots, *redshifts)
	if err != nil {
		log.Fatalf("mergertree: read snapshot index: %v", err)
	}

	opts := config.Default()
	opts.NGrid = *nGrid
	opts.BoxSize = *boxSize
	opts.NPTypes = *nPTypes
	opts.MinPartHalo = *minPartHalo
	opts.MinPartCmp = *minPartCmp
	opts.PathInput = *pathInput
	if *zoomIn {
		opts.Topology = config.ZoomIn
	}

	comm, err := dialCommunicator(ctx, *rank, *addrList)
	if err != nil {
		log.Fatalf("mergertree: %v", err)
	}

	e := engine.New(opts, comm)
	store := persist.NewLocalStore(*output)

	snaps, zs := index.Snapshots(), index.Redshifts()
	for i, snap := range snaps {
		z := zs[i]
		halos, err := catalog.ReadHalos(ctx, catalog.FileName(opts.PathInput, opts.HaloPrefix, snap, 0, z, opts.HaloSuffix), opts.NPTypes)
		if err != nil {
			log.Fatalf("mergertree: read halos for snapshot %d: %v", snap, err)
		}
		parts, err := catalog.ReadParticles(ctx, catalog.FileName(opts.PathInput, opts.HaloPrefix, snap, 0, z, opts.PartSuffix))
		if err != nil {
			log.Fatalf("mergertree: read particles for snapshot %d: %v", snap, err)
		}

		e.Ingest(halos, parts)
		records, err := e.Step(ctx)
		if err != nil {
			log.Fatalf("mergertree: step for snapshot %d: %v", snap, err)
		}
		if records == nil {
			continue
		}
		key := snapshotKey(snap)
		if err := store.WriteCleanTree(ctx, key, records); err != nil {
			log.Fatalf("mergertree: persist snapshot %d: %v", snap, err)
		}
		log.Printf("mergertree: wrote %d records for snapshot %d", len(records), snap)
	}
}
