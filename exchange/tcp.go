package exchange

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// TCPCommunicator is the full-box, multi-process Communicator: every
// rank listens on its own address and maintains one persistent
// connection to every other rank. Exchange fans work out over
// goroutines and joins with a sync.WaitGroup, first-error-wins, the
// same concurrency idiom the teacher's
// bampair.GetDistantMates/markduplicates.generateBAM use.
type TCPCommunicator struct {
	rank  int
	addrs []string

	mu    sync.Mutex
	conns map[int]net.Conn
	ln    net.Listener
}

// DialTimeout bounds each peer connection attempt while the cluster's
// processes are still starting up.
var DialTimeout = 10 * time.Second

// Connect establishes a TCPCommunicator among len(addrs) processes:
// ranks below the caller's rank are expected to dial in (and announce
// their rank over the new connection); ranks above are dialed by the
// caller. addrs[rank] must be reachable by every other rank.
func Connect(ctx context.Context, rank int, addrs []string) (*TCPCommunicator, error) {
	if rank < 0 || rank >= len(addrs) {
		return nil, fmt.Errorf("exchange: rank %d out of range for %d addresses", rank, len(addrs))
	}
	ln, err := net.Listen("tcp", addrs[rank])
	if err != nil {
		return nil, errors.E(err, "exchange: listen on", addrs[rank])
	}

	c := &TCPCommunicator{
		rank:  rank,
		addrs: append([]string(nil), addrs...),
		conns: make(map[int]net.Conn, len(addrs)-1),
		ln:    ln,
	}

	var wg sync.WaitGroup
	errOnce := errors.Once{}

	// Accept connections from every rank below us.
	nBelow := rank
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < nBelow; i++ {
			conn, err := ln.Accept()
			if err != nil {
				errOnce.Set(errors.E(err, "exchange: accept on", addrs[rank]))
				return
			}
			peer, err := readRank(conn)
			if err != nil {
				errOnce.Set(err)
				conn.Close()
				return
			}
			c.mu.Lock()
			c.conns[peer] = conn
			c.mu.Unlock()
		}
	}()

	// Dial every rank above us.
	for j := rank + 1; j < len(addrs); j++ {
		j := j
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := dialWithRetry(ctx, addrs[j])
			if err != nil {
				errOnce.Set(errors.E(err, "exchange: dial", addrs[j]))
				return
			}
			if err := writeRank(conn, rank); err != nil {
				errOnce.Set(err)
				conn.Close()
				return
			}
			c.mu.Lock()
			c.conns[j] = conn
			c.mu.Unlock()
		}()
	}

	wg.Wait()
	if err := errOnce.Err(); err != nil {
		ln.Close()
		return nil, err
	}
	log.Debug.Printf("exchange: rank %d connected to %d peers", rank, len(c.conns))
	return c, nil
}

func dialWithRetry(ctx context.Context, addr string) (net.Conn, error) {
	deadline := time.Now().Add(DialTimeout)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return nil, lastErr
}

func writeRank(conn net.Conn, rank int) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(rank))
	_, err := conn.Write(hdr[:])
	return err
}

func readRank(conn net.Conn) (int, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return 0, fmt.Errorf("exchange: read rank header: %w", err)
	}
	return int(binary.BigEndian.Uint32(hdr[:])), nil
}

// Close closes every peer connection and the listener.
func (c *TCPCommunicator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for _, conn := range c.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := c.ln.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Rank implements Communicator.
func (c *TCPCommunicator) Rank() int { return c.rank }

// Size implements Communicator.
func (c *TCPCommunicator) Size() int { return len(c.addrs) }

func writeFrame(conn net.Conn, frame []byte) error {
	var lenHdr [4]byte
	binary.BigEndian.PutUint32(lenHdr[:], uint32(len(frame)))
	if _, err := conn.Write(lenHdr[:]); err != nil {
		return err
	}
	_, err := conn.Write(frame)
	return err
}

func readFrame(conn net.Conn) ([]byte, error) {
	var lenHdr [4]byte
	if _, err := io.ReadFull(conn, lenHdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenHdr[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Exchange implements Communicator: it sends each outgoing payload,
// as-is behind a 4-byte length prefix, to its destination, and
// concurrently reads whatever every other rank sent this one. Payloads
// are opaque here; compression and the checksum trailer are added by
// encodeBatch and verified by decodeBatch. Any I/O failure is a
// communication failure (spec.md §7): fatal for the step, surfaced to
// the caller rather than retried.
func (c *TCPCommunicator) Exchange(ctx context.Context, outgoing map[int][]byte) (map[int][]byte, error) {
	var wg sync.WaitGroup
	errOnce := errors.Once{}

	incoming := make(map[int][]byte)
	var mu sync.Mutex

	for rank, conn := range c.conns {
		rank, conn := rank, conn
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload := outgoing[rank]
			if err := writeFrame(conn, payload); err != nil {
				errOnce.Set(errors.E(err, "exchange: send to rank", rank))
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			frame, err := readFrame(conn)
			if err != nil {
				errOnce.Set(errors.E(err, "exchange: receive from rank", rank))
				return
			}
			mu.Lock()
			incoming[rank] = frame
			mu.Unlock()
		}()
	}
	wg.Wait()
	if err := errOnce.Err(); err != nil {
		return nil, err
	}
	return incoming, nil
}

// Barrier implements Communicator with a single exchange of
// zero-length frames: every rank must be willing to send and receive
// before any can proceed past the barrier.
func (c *TCPCommunicator) Barrier(ctx context.Context) error {
	outgoing := make(map[int][]byte, len(c.conns))
	for rank := range c.conns {
		outgoing[rank] = []byte{}
	}
	_, err := c.Exchange(ctx, outgoing)
	return err
}

// ReduceSumInt implements Communicator as a gather-to-root over the
// same Exchange primitive: every non-root rank sends its local value
// to rank 0, which sums them. This is diagnostic-only, per spec.md §7.
func (c *TCPCommunicator) ReduceSumInt(ctx context.Context, local int) (int, bool, error) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(int64(local)))

	if c.rank != 0 {
		outgoing := map[int][]byte{0: buf[:]}
		if _, err := c.Exchange(ctx, outgoing); err != nil {
			return 0, false, err
		}
		return 0, false, nil
	}

	outgoing := make(map[int][]byte, len(c.conns))
	for rank := range c.conns {
		outgoing[rank] = nil
	}
	incoming, err := c.Exchange(ctx, outgoing)
	if err != nil {
		return 0, true, err
	}
	sum := local
	for _, frame := range incoming {
		if len(frame) != 8 {
			continue
		}
		sum += int(int64(binary.BigEndian.Uint64(frame)))
	}
	return sum, true, nil
}
