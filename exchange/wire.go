package exchange

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/minio/highwayhash"
)

// wireKey is the fixed HighwayHash-64 key used to checksum exchanged
// frames. It only needs to guard against corruption/truncation on the
// wire, not against a malicious peer, so a fixed key is adequate.
var wireKey = [32]byte{
	0x4d, 0x65, 0x72, 0x67, 0x65, 0x72, 0x54, 0x72,
	0x65, 0x65, 0x45, 0x6e, 0x67, 0x69, 0x6e, 0x65,
	0x43, 0x33, 0x42, 0x75, 0x66, 0x66, 0x65, 0x72,
	0x45, 0x78, 0x63, 0x68, 0x61, 0x6e, 0x67, 0x65,
}

// haloBatch is the gob-encodable payload exchanged between two ranks:
// the halos and particle sets one process believes the destination
// rank needs as ghosts (spec.md §4.3, step 2).
type haloBatch struct {
	Halos []wireHalo
}

type wireHalo struct {
	Halo        haloFields
	PartsByType map[int][]uint64
}

// haloFields mirrors treepb.Halo field-for-field; kept separate so
// gob's encoding is decoupled from treepb's API (adding a method to
// Halo shouldn't change the wire format).
type haloFields struct {
	ID         uint64
	HostID     uint64
	Position   [3]float64
	Velocity   [3]float64
	RVir       float64
	Mass       float64
	NPart      []uint64
	Spin       float64
	HiResFrac  float64
	IsToken    bool
	OrphanStep int
}

func encodeBatch(b haloBatch) ([]byte, error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(b); err != nil {
		return nil, fmt.Errorf("exchange: gob encode: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("exchange: new zstd writer: %w", err)
	}
	defer enc.Close()
	compressed := enc.EncodeAll(raw.Bytes(), nil)

	h, err := highwayhash.New64(wireKey[:])
	if err != nil {
		return nil, fmt.Errorf("exchange: new highwayhash: %w", err)
	}
	h.Write(compressed)
	sum := h.Sum64()

	frame := make([]byte, 8+len(compressed))
	copy(frame, compressed)
	binary.BigEndian.PutUint64(frame[len(compressed):], sum)
	return frame, nil
}

// decodeBatch reverses encodeBatch, verifying the HighwayHash-64
// trailer. A checksum mismatch or a malformed frame is a
// "communication failure" per spec.md §7: fatal for the step.
func decodeBatch(frame []byte) (haloBatch, error) {
	if len(frame) < 8 {
		return haloBatch{}, fmt.Errorf("exchange: frame too short (%d bytes)", len(frame))
	}
	compressed := frame[:len(frame)-8]
	wantSum := binary.BigEndian.Uint64(frame[len(frame)-8:])

	h, err := highwayhash.New64(wireKey[:])
	if err != nil {
		return haloBatch{}, fmt.Errorf("exchange: new highwayhash: %w", err)
	}
	h.Write(compressed)
	if h.Sum64() != wantSum {
		return haloBatch{}, fmt.Errorf("exchange: checksum mismatch, frame corrupted in transit")
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return haloBatch{}, fmt.Errorf("exchange: new zstd reader: %w", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return haloBatch{}, fmt.Errorf("exchange: zstd decode: %w", err)
	}

	var b haloBatch
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&b); err != nil {
		return haloBatch{}, fmt.Errorf("exchange: gob decode: %w", err)
	}
	return b, nil
}
