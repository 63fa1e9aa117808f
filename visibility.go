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
)

// Caller supplied inputs that cannot be processed
var ErrPrecondition = errors.New("precondition violated")

// VisOpt contains options for visible satellite selection
type VisOpt struct {
	ElMask float64    // Elevation mask [deg]
	Kepler *KeplerOpt // Options for the approximate propagation
}

func NewVisOpt() *VisOpt {
	return &VisOpt{
		ElMask: 5,
		Kepler: NewKeplerOpt(),
	}
}

// Visible subset of the inputs given to FilterVisible (order preserved)
type Visible struct {
	Ephe   []*Ephe          // nil if no ephemeris was given
	States []SatelliteState // nil if no states were given
}

// Select satellites above the elevation mask seen from the receiver.
//   - At least one of ephs or states must be given. If states is given it is used for the elevation,
//     otherwise approximate states are propagated at (epoch - nominal transit time).
//   - rx must be an ECEF position with exactly 3 components.
func FilterVisible(gpsMillis float64, rx []float64, ephs []*Ephe, states []SatelliteState, opt *VisOpt) (*Visible, error) {
	if opt == nil {
		opt = NewVisOpt()
	}
	if ephs == nil && states == nil {
		return nil, fmt.Errorf("ephemeris or satellite states must be given: %w", ErrPrecondition)
	}
	if len(rx) != 3 {
		return nil, fmt.Errorf("receiver position must have 3 components, got %d: %w", len(rx), ErrPrecondition)
	}
	upos := PosXYZ{X: rx[0], Y: rx[1], Z: rx[2]}

	// Approximate states used only for the elevation
	approx := states
	if approx == nil {
		// A convergence warning does not matter for the elevation estimate
		approx, _ = Propagate(gpsMillis-1000*TTrans, ephs, opt.Kepler)
	}

	visible := map[SatType]bool{}
	for _, s := range approx {
		elv := ToDeg(upos.Elevation(s.Pos))
		if elv > opt.ElMask {
			visible[s.Sat] = true
		} else {
			PrintD(3, "\t%s: elev=%f <= %f\n", s.Sat, elv, opt.ElMask)
		}
	}

	rslt := &Visible{}
	if ephs != nil {
		rslt.Ephe = make([]*Ephe, 0, len(visible))
		for _, eph := range ephs {
			if visible[eph.Sat] {
				rslt.Ephe = append(rslt.Ephe, eph)
			}
		}
	}
	if states != nil {
		rslt.States = make([]SatelliteState, 0, len(visible))
		for _, s := range states {
			if visible[s.Sat] {
				rslt.States = append(rslt.States, s)
			}
		}
	}
	visibleSats.Observe(float64(len(visible)))
	PrintD(2, "\tvisible: %d\n", len(visible))
	return rslt, nil
}
