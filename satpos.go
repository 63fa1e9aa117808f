// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnssdop

import (
	"fmt"
	"math"
)

// Number of fixed passes refining the argument of latitude
const ARG_LAT_PASSES = 5

// Satellite position and velocity at one epoch
type SatelliteState struct {
	Sat         SatType
	Epoch       float64 // Query epoch [GPS ms]
	Pos         PosXYZ  // ECEF position [m]
	Vel         PosXYZ  // ECEF velocity [m/s]
	TransitTime float64 // Signal transit time used to evaluate the state [s] (0 if none)
}

// Calculate satellite positions and velocities at the specified epoch for every ephemeris.
// States are always returned in input order. The only error returned is a *ConvergenceWarning.
func Propagate(gpsMillis float64, ephs []*Ephe, opt *KeplerOpt) ([]SatelliteState, error) {
	epochs := make([]float64, len(ephs))
	for i := range epochs {
		epochs[i] = gpsMillis
	}
	states, warn := propagateAt(epochs, ephs, opt)
	for i := range states {
		states[i].Epoch = gpsMillis
	}
	return states, warn
}

// Propagate each ephemeris at its own evaluation epoch
func propagateAt(epochs []float64, ephs []*Ephe, opt *KeplerOpt) ([]SatelliteState, error) {
	if opt == nil {
		opt = NewKeplerOpt()
	}
	states := make([]SatelliteState, len(ephs))
	var warn *ConvergenceWarning
	for i, eph := range ephs {
		pos, vel, dek := satPosVel(eph, *NewGTimeFromMillis(epochs[i]), opt)
		states[i] = SatelliteState{Sat: eph.Sat, Epoch: epochs[i], Pos: pos, Vel: vel}
		if !Converged(dek, opt) {
			if warn == nil {
				warn = &ConvergenceWarning{Iter: opt.MaxIter}
			}
			warn.Sats = append(warn.Sats, eph.Sat)
			warn.Dek = append(warn.Dek, dek)
		}
	}
	statesPropagated.Add(float64(len(states)))
	if warn != nil {
		keplerWarnings.Add(float64(len(warn.Sats)))
		PrintD(1, "warning: %s\n", warn.Error())
		return states, warn
	}
	return states, nil
}

// Calculate satellite position and velocity from broadcast Keplerian elements.
// Returns the last Newton-Raphson correction of the eccentric anomaly as well.
func satPosVel(e *Ephe, gt GTime, opt *KeplerOpt) (pos, vel PosXYZ, dek float64) {

	// Elapsed time since the reference epoch, corrected for week rollover
	weekDiff := float64(gt.Week%1024-e.Week%1024) * WeekSec
	tk := gt.Sec - e.Toe + weekDiff

	// Corrected mean anomaly and eccentric anomaly
	a := e.SqrtA * e.SqrtA
	n0 := math.Sqrt(MuE) / (e.SqrtA * e.SqrtA * e.SqrtA)
	mk := e.M0 + n0*tk + e.DeltaN*tk
	ek, dek := SolveKepler(mk, e.Ecc, opt)
	cosE := math.Cos(ek)
	sinE := math.Sin(ek)
	eCosE := 1 - e.Ecc*cosE

	// True anomaly
	sq1e2 := math.Sqrt(1 - e.Ecc*e.Ecc)
	vk := math.Atan2(sq1e2*sinE, cosE-e.Ecc)

	// Argument of latitude with second harmonic corrections (fixed passes)
	pk := vk + e.Omega
	uk := pk
	var cos2, sin2 float64
	for i := 0; i < ARG_LAT_PASSES; i++ {
		cos2 = math.Cos(2 * uk)
		sin2 = math.Sin(2 * uk)
		uk = pk + e.Cuc*cos2 + e.Cus*sin2
	}

	// Longitude of ascending node, including the Earth rotation since the start of the week
	omk := e.Omega0 - OmegaEDot*(gt.Sec+weekDiff) + e.OmegaD*tk

	// Corrected radius and inclination
	rk := a*eCosE + e.Crc*cos2 + e.Crs*sin2
	ik := e.I0 + e.Cic*cos2 + e.Cis*sin2 + e.Idot*tk

	// Time derivatives
	dEk := (n0 + e.DeltaN) / eCosE
	dPk := sq1e2 * dEk / eCosE
	dRk := a*e.Ecc*dEk*sinE + 2*(e.Crs*cos2-e.Crc*sin2)*dPk
	dIk := 2*(e.Cis*cos2-e.Cic*sin2)*dPk + e.Idot
	dUk := (1 + 2*(e.Cus*cos2-e.Cuc*sin2)) * dPk
	dOmk := e.OmegaD - OmegaEDot

	// Position and velocity in the orbital plane
	xk := rk * math.Cos(uk)
	yk := rk * math.Sin(uk)
	dxk := dRk*math.Cos(uk) - rk*math.Sin(uk)*dUk
	dyk := dRk*math.Sin(uk) + rk*math.Cos(uk)*dUk

	// Rotate into ECEF
	coso := math.Cos(omk)
	sino := math.Sin(omk)
	cosi := math.Cos(ik)
	sini := math.Sin(ik)
	pos.X = xk*coso - yk*cosi*sino
	pos.Y = xk*sino + yk*cosi*coso
	pos.Z = yk * sini
	vel.X = dxk*coso - dyk*cosi*sino + yk*sino*sini*dIk - (xk*sino+yk*cosi*coso)*dOmk
	vel.Y = dxk*sino + dyk*cosi*coso - yk*sini*coso*dIk + (xk*coso-yk*cosi*sino)*dOmk
	vel.Z = dyk*sini + yk*cosi*dIk
	return
}

// Locate satellites at the signal transmission time seen from the receiver.
//   - If states is nil, states are propagated at (epoch - nominal transit time), and each
//     satellite is recomputed once at (epoch - range/c). No further iteration is done.
//   - The Earth rotation during transit is applied as a linear term on x and y.
//
// Returns the corrected states, satellite minus receiver vectors and ranges [m].
func LocateSatellites(gpsMillis float64, rx []float64, ephs []*Ephe, states []SatelliteState, opt *KeplerOpt) ([]SatelliteState, []PosXYZ, []float64, error) {
	if len(rx) != 3 {
		return nil, nil, nil, fmt.Errorf("receiver position must have 3 components, got %d: %w", len(rx), ErrPrecondition)
	}
	upos := PosXYZ{X: rx[0], Y: rx[1], Z: rx[2]}

	var warn error
	if states == nil {
		if ephs == nil {
			return nil, nil, nil, fmt.Errorf("ephemeris or satellite states must be given: %w", ErrPrecondition)
		}
		approx, err := Propagate(gpsMillis-1000*TTrans, ephs, opt)
		warn = err
		_, rng := rangesFrom(approx, &upos)
		epochs := make([]float64, len(ephs))
		for i := range ephs {
			epochs[i] = gpsMillis - 1000*rng[i]/C
		}
		states, err = propagateAt(epochs, ephs, opt)
		if err != nil {
			warn = err
		}
	} else {
		cp := make([]SatelliteState, len(states))
		copy(cp, states)
		states = cp
	}

	// Vectors and ranges are those before the Earth rotation term is applied
	del, rng := rangesFrom(states, &upos)
	for i := range states {
		tc := rng[i] / C
		states[i].Pos.X += OmegaEDot * states[i].Pos.X * tc
		states[i].Pos.Y += OmegaEDot * states[i].Pos.Y * tc
		states[i].Epoch = gpsMillis
		states[i].TransitTime = tc
	}
	return states, del, rng, warn
}

// Satellite minus receiver vectors and ranges
func rangesFrom(states []SatelliteState, upos *PosXYZ) ([]PosXYZ, []float64) {
	del := make([]PosXYZ, len(states))
	rng := make([]float64, len(states))
	for i := range states {
		del[i] = PosXYZ{
			X: states[i].Pos.X - upos.X,
			Y: states[i].Pos.Y - upos.Y,
			Z: states[i].Pos.Z - upos.Z,
		}
		rng[i] = EucDist(&states[i].Pos, upos)
	}
	return del, rng
}
