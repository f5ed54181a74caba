package persist

import (
	"context"
	"testing"

	"github.com/EdoardoCarlesi/MetroCpp/treepb"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	store := NewLocalStore(tempDir)
	records := []treepb.MergerTreeRecord{
		{
			MainHalo:        treepb.Halo{ID: 1, NPart: []uint64{0, 10}},
			IDProgenitor:    []uint64{2},
			IndexProgenitor: []treepb.HaloRef{treepb.LocalRef(0)},
			ProgHalos:       []treepb.Halo{{ID: 2, NPart: []uint64{0, 12}}},
			NCommon:         [][]int{{0}, {8}},
		},
	}

	require.NoError(t, store.WriteCleanTree(context.Background(), "step042", records))
	got, err := store.ReadCleanTree(context.Background(), "step042")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].MainHalo.ID)
	assert.Equal(t, uint64(2), got[0].IDProgenitor[0])
	assert.Equal(t, 8, got[0].NCommon[1][0])
}

func TestLocalStoreMissingKeyErrors(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	store := NewLocalStore(tempDir)
	_, err := store.ReadCleanTree(context.Background(), "missing")
	assert.Error(t, err)
}
