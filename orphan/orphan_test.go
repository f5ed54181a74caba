package orphan

import (
	"testing"

	"github.com/EdoardoCarlesi/MetroCpp/treepb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEligibleThresholdsOnMinPartHalo(t *testing.T) {
	tr := NewTracker(2, 20, 5)
	assert.False(t, tr.Eligible(treepb.Halo{NPart: []uint64{0, 20}}))
	assert.True(t, tr.Eligible(treepb.Halo{NPart: []uint64{0, 21}}))
}

func TestPromoteAndTokensRoundTripsParticles(t *testing.T) {
	tr := NewTracker(2, 10, 5)
	halo := treepb.Halo{ID: 1, NPart: []uint64{0, 50}}
	ps := treepb.NewParticleSet()
	ps.ByType[treepb.DMType] = []uint64{1, 2, 3}

	require.NoError(t, tr.Promote(halo, ps))
	assert.Equal(t, 1, tr.Len())

	halos, parts, err := tr.Tokens()
	require.NoError(t, err)
	require.Len(t, halos, 1)
	assert.True(t, halos[0].IsToken)
	assert.Equal(t, 1, halos[0].OrphanStep)
	assert.Equal(t, []uint64{1, 2, 3}, parts[0].IDs(treepb.DMType))
}

func TestReconnectRemovesToken(t *testing.T) {
	tr := NewTracker(2, 10, 5)
	require.NoError(t, tr.Promote(treepb.Halo{ID: 7, NPart: []uint64{0, 50}}, treepb.NewParticleSet()))
	tr.Reconnect(7)
	assert.Equal(t, 0, tr.Len())
}

func TestPromoteThenAgeAndExpireSameStepLeavesAgeAtOne(t *testing.T) {
	tr := NewTracker(2, 10, 5)
	require.NoError(t, tr.Promote(treepb.Halo{ID: 1, NPart: []uint64{0, 50}}, treepb.NewParticleSet()))

	// The same Step call that promotes a halo also runs AgeAndExpire
	// once, at the end of the step: that call must not also age the
	// halo it just promoted (spec.md §4.7/S3's nOrphanSteps=1).
	expired := tr.AgeAndExpire()
	assert.Empty(t, expired)
	halos, _, err := tr.Tokens()
	require.NoError(t, err)
	assert.Equal(t, 1, halos[0].OrphanStep)
}

func TestAgeAndExpireEvictsPastMaxAge(t *testing.T) {
	tr := NewTracker(2, 10, 2)
	require.NoError(t, tr.Promote(treepb.Halo{ID: 1, NPart: []uint64{0, 50}}, treepb.NewParticleSet()))

	// First call is the promoting step's own AgeAndExpire: skipped.
	expired := tr.AgeAndExpire()
	assert.Empty(t, expired)
	assert.Equal(t, 1, tr.Len())

	expired = tr.AgeAndExpire()
	assert.Empty(t, expired)
	assert.Equal(t, 1, tr.Len())

	expired = tr.AgeAndExpire()
	assert.Equal(t, []uint64{1}, expired)
	assert.Equal(t, 0, tr.Len())
}

func TestAgeAndExpireWidensOrphanStepForCompareHalos(t *testing.T) {
	tr := NewTracker(2, 10, 10)
	require.NoError(t, tr.Promote(treepb.Halo{ID: 1, NPart: []uint64{0, 50}}, treepb.NewParticleSet()))
	tr.AgeAndExpire() // promoting step's own call: skipped, stays at 1.
	tr.AgeAndExpire() // +1
	tr.AgeAndExpire() // +1
	halos, _, err := tr.Tokens()
	require.NoError(t, err)
	assert.Equal(t, 3, halos[0].OrphanStep)
}

func TestTokensOrderedByHaloID(t *testing.T) {
	tr := NewTracker(2, 10, 5)
	require.NoError(t, tr.Promote(treepb.Halo{ID: 9, NPart: []uint64{0, 50}}, treepb.NewParticleSet()))
	require.NoError(t, tr.Promote(treepb.Halo{ID: 2, NPart: []uint64{0, 50}}, treepb.NewParticleSet()))
	halos, _, err := tr.Tokens()
	require.NoError(t, err)
	require.Len(t, halos, 2)
	assert.Equal(t, uint64(2), halos[0].ID)
	assert.Equal(t, uint64(9), halos[1].ID)
}
