// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnssdop

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// KeplerOpt controls the Newton-Raphson solution of Kepler's equation
type KeplerOpt struct {
	MaxIter int     // Number of iterations (always run in full)
	Tol     float64 // Tolerance on the last correction [rad] for the convergence warning
}

func NewKeplerOpt() *KeplerOpt {
	return &KeplerOpt{
		MaxIter: 10,
		Tol:     1e-5,
	}
}

// Solve M - E + e sin(E) = 0 for the eccentric anomaly E by Newton-Raphson.
// Returns E and the correction applied in the last iteration.
func SolveKepler(mk, ecc float64, opt *KeplerOpt) (ek, dek float64) {
	if opt == nil {
		opt = NewKeplerOpt()
	}
	ek = mk
	for i := 0; i < opt.MaxIter; i++ {
		f := mk - ek + ecc*math.Sin(ek)
		df := ecc*math.Cos(ek) - 1
		dek = -f / df
		ek += dek
	}
	return
}

// Whether the last correction is within the tolerance
func Converged(dek float64, opt *KeplerOpt) bool {
	if opt == nil {
		opt = NewKeplerOpt()
	}
	return math.Abs(dek) <= opt.Tol
}

// ConvergenceWarning is returned together with complete results when the eccentric anomaly
// of some satellites may not have converged. It is advisory, not a failure.
type ConvergenceWarning struct {
	Iter int
	Sats []SatType
	Dek  []float64
}

func (w *ConvergenceWarning) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "eccentric anomaly may not have converged after %d steps:", w.Iter)
	for i, sat := range w.Sats {
		fmt.Fprintf(&sb, " %s(dE=%.3e)", sat, w.Dek[i])
	}
	return sb.String()
}

// Whether err carries only a convergence warning (results are usable)
func IsWarning(err error) bool {
	var w *ConvergenceWarning
	return errors.As(err, &w)
}
