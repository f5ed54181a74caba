package cosmology

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanckParams(t *testing.T) {
	p := Planck()
	assert.InDelta(t, 0.69, p.OmegaL, 1e-9)
	assert.InDelta(t, 0.67, p.H, 1e-9)
}

func TestRhoCDerivesFromRho0(t *testing.T) {
	p := Planck()
	rho0 := Rho0(100, 256*256*256)
	rhoC := p.RhoC(100, 256*256*256)
	assert.InDelta(t, rho0/(1.0-p.OmegaL), rhoC, 1e-6)
}

func TestUnresolvedHelpersReturnError(t *testing.T) {
	assert.Error(t, GravAcc(0, 0, 1))
	_, err := InitH2t()
	assert.Error(t, err)
	_, err = H2t(1)
	assert.Error(t, err)
	_, err = A2Sec(0, 1)
	assert.Error(t, err)
}
