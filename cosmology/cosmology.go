// Package cosmology carries the handful of cosmology helpers the
// original engine kept alongside its tree-building code: background
// density parameters, and time/redshift conversion stubs that were
// never completed upstream (see errNotImplemented below).
package cosmology

import (
	"errors"
	"math"
)

// Params holds the cosmological parameters the original sets via
// SetPlanck/SetWMAP7.
type Params struct {
	OmegaDM float64
	OmegaL  float64
	OmegaM  float64
	OmegaB  float64
	H       float64
}

// Planck returns the Planck-2018-era parameter set, the original's
// default constructor values.
func Planck() Params {
	return Params{OmegaDM: 0.26, OmegaL: 0.69, OmegaM: 0.31, OmegaB: 0.05, H: 0.67}
}

// WMAP7 returns the WMAP-7-year parameter set.
func WMAP7() Params {
	return Params{OmegaDM: 0.23, OmegaL: 0.73, OmegaM: 0.27, OmegaB: 0.04, H: 0.7}
}

// Rho0 computes the mean matter density implied by a box of side
// boxSizeMpc containing nPart particles, calibrated against a
// reference 100 Mpc/h box with 256 particles per side (the original's
// magic constants in Cosmology::Rho0).
func Rho0(boxSizeMpc float64, nPart int) float64 {
	const fact0 = 100.0 / 256.0
	const mass0 = 1.05217e+11 / 20.0
	fact1 := boxSizeMpc / float64(nPart)
	mass1 := math.Pow(fact1/fact0, 3) * mass0
	return mass1 * float64(nPart) / math.Pow(boxSizeMpc, 3)
}

// RhoC computes the critical density implied by Rho0 and p.OmegaL.
func (p Params) RhoC(boxSizeMpc float64, nPart int) float64 {
	return Rho0(boxSizeMpc, nPart) * (1.0 / (1.0 - p.OmegaL))
}

// errNotImplemented marks the helpers whose original C++ bodies never
// resolved what they were meant to compute: GravAcc's body lives
// entirely behind an #ifdef TEST guard never built into the
// production binary, H2t and A2Sec are themselves no-op bodies that
// return an uninitialized local, and InitH2t is a bare stub. Spec.md
// §9 flags this ambiguity explicitly; inventing a closed-form
// replacement here would paper over a gap the source itself never
// closed.
var errNotImplemented = errors.New("cosmology: not implemented in the original source, left unresolved")

// GravAcc would compute the gravitational acceleration a halo
// experiences from its neighbours between two scale factors a0, a1.
func GravAcc(haloIndex int, a0, a1 float64) error {
	return errNotImplemented
}

// InitH2t would precompute whatever table H2t relies on.
func InitH2t() (float64, error) {
	return 0, errNotImplemented
}

// H2t would convert a Hubble-parameter-like quantity t into a time.
func H2t(t float64) (float64, error) {
	return 0, errNotImplemented
}

// A2Sec would convert a pair of scale factors into an elapsed time in
// seconds.
func A2Sec(a0, a1 float64) (float64, error) {
	return 0, errNotImplemented
}
