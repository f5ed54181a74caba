package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignAndListNearby(t *testing.T) {
	g := Init(4, 100.0) // cellSize = 25.

	g.AssignToGrid([3]float64{1, 1, 1}, 0)
	g.AssignToGrid([3]float64{2, 2, 2}, 1)
	g.AssignToGrid([3]float64{90, 90, 90}, 2) // cell 3 on every axis.

	// A one-cell radius around cell 0 also reaches cell 3 across the
	// periodic boundary, so halo 2 is listed too.
	near := g.ListNearbyHalos([3]float64{0, 0, 0}, 1.0)
	assert.ElementsMatch(t, []int{0, 1, 2}, near)

	// Periodic wrap: a point near the box edge should see the halo
	// that wrapped to the far side.
	nearWrap := g.ListNearbyHalos([3]float64{99, 99, 99}, 2.0)
	assert.Contains(t, nearWrap, 2)
}

func TestResetClearsCells(t *testing.T) {
	g := Init(2, 10.0)
	g.AssignToGrid([3]float64{1, 1, 1}, 7)
	assert.NotEmpty(t, g.ListNearbyHalos([3]float64{1, 1, 1}, 5.0))
	g.Reset()
	assert.Empty(t, g.ListNearbyHalos([3]float64{1, 1, 1}, 5.0))
}

func TestFindPatchOnTaskBalanced(t *testing.T) {
	g := Init(10, 100.0)
	patches := g.FindPatchOnTask(3)
	assert.Len(t, patches, 3)
	total := 0
	for i, p := range patches {
		assert.Equal(t, i, p.Rank)
		total += p.AxisEnd - p.AxisStart
	}
	assert.Equal(t, 10, total)
	assert.Equal(t, 0, patches[0].AxisStart)
	assert.Equal(t, patches[len(patches)-1].AxisEnd, 10)
}

func TestOwnerIndexResolvesRank(t *testing.T) {
	g := Init(10, 100.0)
	patches := g.FindPatchOnTask(4)
	idx := NewOwnerIndex(patches)
	for _, p := range patches {
		for c := p.AxisStart; c < p.AxisEnd; c++ {
			assert.Equal(t, p.Rank, idx.OwnerOf(c, 10))
		}
	}
}
