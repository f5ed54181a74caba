// Package exchange implements the buffer-exchange protocol (component
// C3): replicating halos and particle sets belonging to cells near a
// process's owned-slab boundary into neighbouring processes' ghost
// buffers, so cross-process progenitor comparisons can be done
// locally (spec.md §4.3).
//
// No example in the retrieved pack binds an MPI library, so message
// passing is modeled as an explicit Communicator capability with a
// local (single-rank) implementation for zoom-in mode and tests, and
// a real TCP implementation for full-box, multi-process runs
// (spec.md §5.1).
package exchange

import "context"

// Communicator is the message-passing capability C3 needs: pairwise
// exchange of opaque framed payloads, a barrier, and a collective
// integer sum. The engine itself calls only Rank, Size and Exchange.
type Communicator interface {
	Rank() int
	Size() int

	// Exchange sends outgoing[dest] to every dest != Rank() and
	// returns what every src != Rank() sent this rank. It blocks until
	// every non-blocking send/receive pair has completed (spec.md §5:
	// "joined before C4 begins").
	Exchange(ctx context.Context, outgoing map[int][]byte) (incoming map[int][]byte, err error)

	// Barrier blocks until every rank has called Barrier.
	Barrier(ctx context.Context) error

	// ReduceSumInt sums local across every rank. Only the root
	// (rank 0) receives a meaningful sum; isRoot reports whether this
	// call is that root.
	ReduceSumInt(ctx context.Context, local int) (sum int, isRoot bool, err error)
}
