// Package snapindex models the snapshot index (spec.md §6): the
// per-run list of available snapshot numbers, their redshifts and
// scale factors. The original relies on three external helper
// scripts to produce these lists; shelling out to them is out of
// scope, so this package's reference Index parses the plain
// integer/float lists those scripts would have emitted.
package snapindex

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

// Index answers the snapshot-driver's bookkeeping questions about
// which snapshots exist and their cosmological parameters.
type Index interface {
	NumSnapshots() int
	Snapshots() []int
	Redshifts() []float64
	ScaleFactors() []float64
}

// list is a straightforward slice-backed Index.
type list struct {
	snaps []int
	z     []float64
	a     []float64
}

func (l *list) NumSnapshots() int       { return len(l.snaps) }
func (l *list) Snapshots() []int        { return l.snaps }
func (l *list) Redshifts() []float64    { return l.z }
func (l *list) ScaleFactors() []float64 { return l.a }

// New builds an Index directly from parallel slices, for programmatic
// construction (tests, or a caller with its own discovery logic).
func New(snaps []int, redshifts []float64) Index {
	a := make([]float64, len(redshifts))
	for i, z := range redshifts {
		a[i] = 1.0 / (1.0 + z)
	}
	return &list{snaps: snaps, z: redshifts, a: a}
}

// ReadFiles parses the snapshot-number list and redshift list from two
// plain-text files, one value per line, in the order the original's
// helper scripts would have produced them. Scale factors are derived
// as a = 1/(1+z) rather than read from a third file, since that
// relation is exact and the original's third script output is
// redundant with it.
func ReadFiles(ctx context.Context, snapsPath, redshiftsPath string) (Index, error) {
	snaps, err := readInts(ctx, snapsPath)
	if err != nil {
		return nil, fmt.Errorf("snapindex: %w", err)
	}
	z, err := readFloats(ctx, redshiftsPath)
	if err != nil {
		return nil, fmt.Errorf("snapindex: %w", err)
	}
	if len(snaps) != len(z) {
		return nil, fmt.Errorf("snapindex: %d snapshots but %d redshifts", len(snaps), len(z))
	}
	return New(snaps, z), nil
}

func readInts(ctx context.Context, path string) ([]int, error) {
	lines, err := readLines(ctx, path)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(lines))
	for _, l := range lines {
		v, err := strconv.Atoi(l)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func readFloats(ctx context.Context, path string) ([]float64, error) {
	lines, err := readLines(ctx, path)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(lines))
	for _, l := range lines {
		v, err := strconv.ParseFloat(l, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func readLines(ctx context.Context, path string) ([]string, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "snapindex: open %s", path)
	}
	defer in.Close(ctx)

	var lines []string
	scanner := bufio.NewScanner(in.Reader(ctx))
	for scanner.Scan() {
		t := strings.TrimSpace(scanner.Text())
		if t == "" {
			continue
		}
		lines = append(lines, t)
	}
	return lines, scanner.Err()
}
