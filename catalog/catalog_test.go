package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestReadHalosParsesWellFormedLines(t *testing.T) {
	dir := t.TempDir()
	contents := "# id hostId mass nPartTotal nPartDM nPartGas x y z vx vy vz rvir spin\n" +
		"100 0 1.0e12 50 50 0 1.0 2.0 3.0 0.1 0.2 0.3 0.5 0.03\n" +
		"200 100 5.0e11 20 20 0 1.1 2.1 3.1 0.0 0.0 0.0 0.2 0.01\n"
	path := writeFile(t, dir, "halos.ascii", contents)

	halos, err := ReadHalos(context.Background(), path, 2)
	require.NoError(t, err)
	require.Len(t, halos, 2)
	assert.Equal(t, uint64(100), halos[0].ID)
	assert.Equal(t, uint64(0), halos[0].HostID)
	assert.Equal(t, [3]float64{1.0, 2.0, 3.0}, halos[0].Position)
	assert.Equal(t, uint64(200), halos[1].ID)
	assert.Equal(t, uint64(100), halos[1].HostID)
	assert.InDelta(t, 0.5, halos[0].RVir, 1e-9)
}

func TestReadHalosSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	contents := "100 0 1.0e12 50 50 0 1.0 2.0 3.0 0.1 0.2 0.3 0.5 0.03\n" +
		"this line is garbage\n" +
		"200 0 1.0e11 10 10 0 0 0 0 0 0 0 0.1 0.0\n"
	path := writeFile(t, dir, "halos.ascii", contents)

	halos, err := ReadHalos(context.Background(), path, 2)
	require.NoError(t, err)
	assert.Len(t, halos, 2)
}

func TestReadParticlesParsesTwoLineHeaderFormat(t *testing.T) {
	dir := t.TempDir()
	contents := "3 100\n1 0\n2 0\n3 1\n1 200\n4 0\n"
	path := writeFile(t, dir, "particles.ascii", contents)

	sets, err := ReadParticles(context.Background(), path)
	require.NoError(t, err)
	require.Contains(t, sets, uint64(100))
	require.Contains(t, sets, uint64(200))
	assert.ElementsMatch(t, []uint64{1, 2}, sets[100].ByType[0])
	assert.ElementsMatch(t, []uint64{3}, sets[100].ByType[1])
	assert.ElementsMatch(t, []uint64{4}, sets[200].ByType[0])
}

func TestFileNameMatchesNamingConvention(t *testing.T) {
	got := FileName("/data/run1/", "halos_", 12, 3, 0.125, "AHF_halos")
	assert.Equal(t, "/data/run1/halos_012.0003.z0.125.AHF_halos", got)
}
