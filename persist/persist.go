// Package persist implements the clean-tree persistence layer
// (spec.md §6's runMode 1/2 re-ingestion): encoding a step's cleaned
// merger-tree records to a compressed stream and reading them back,
// against either the local filesystem or S3.
package persist

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/EdoardoCarlesi/MetroCpp/treepb"
	"github.com/klauspost/compress/gzip"
)

// Store persists and retrieves one snapshot step's cleaned tree
// records, keyed by an opaque string (typically derived from the
// snapshot number via the spec.md §6 file-naming convention).
type Store interface {
	WriteCleanTree(ctx context.Context, key string, records []treepb.MergerTreeRecord) error
	ReadCleanTree(ctx context.Context, key string) ([]treepb.MergerTreeRecord, error)
}

// encode gob-encodes and gzip-compresses a batch of records.
func encode(records []treepb.MergerTreeRecord) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(records); err != nil {
		return nil, fmt.Errorf("persist: encode: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("persist: close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// decode reverses encode.
func decode(r io.Reader) ([]treepb.MergerTreeRecord, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("persist: open gzip reader: %w", err)
	}
	defer gz.Close()

	var records []treepb.MergerTreeRecord
	if err := gob.NewDecoder(gz).Decode(&records); err != nil {
		return nil, fmt.Errorf("persist: decode: %w", err)
	}
	return records, nil
}
