package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultIsFullBoxMapJoinFreshRun(t *testing.T) {
	o := Default()
	assert.Equal(t, FullBox, o.Topology)
	assert.Equal(t, MapJoin, o.ProgenitorMode)
	assert.Equal(t, FreshRun, o.RunMode)
	assert.Greater(t, o.NGrid, 0)
	assert.Greater(t, o.MaxOrphanAge, 0)
}
