package exchange

import "context"

// LocalCommunicator is the single-rank Communicator used by zoom-in
// mode (spec.md §6: ZOOM — "single-process replication") and by every
// test in this module except the engine's two-rank buffer-crossing
// test, which uses TCPCommunicator: there are no peers, so Exchange always returns
// empty, Barrier is a no-op, and ReduceSumInt is trivially the root.
type LocalCommunicator struct{}

// NewLocalCommunicator returns the single-process Communicator.
func NewLocalCommunicator() *LocalCommunicator { return &LocalCommunicator{} }

// Rank implements Communicator.
func (l *LocalCommunicator) Rank() int { return 0 }

// Size implements Communicator.
func (l *LocalCommunicator) Size() int { return 1 }

// Exchange implements Communicator.
func (l *LocalCommunicator) Exchange(ctx context.Context, outgoing map[int][]byte) (map[int][]byte, error) {
	return map[int][]byte{}, nil
}

// Barrier implements Communicator.
func (l *LocalCommunicator) Barrier(ctx context.Context) error { return nil }

// ReduceSumInt implements Communicator.
func (l *LocalCommunicator) ReduceSumInt(ctx context.Context, local int) (int, bool, error) {
	return local, true, nil
}
