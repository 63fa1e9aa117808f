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

	"gonum.org/v1/gonum/mat"
)

// Receiver to satellite geometry for one satellite at one epoch
type LineOfSight struct {
	Epoch        float64 // [GPS ms]
	Sat          SatType
	ElevationDeg float64
	AzimuthDeg   float64 // 0 = North, clockwise, [0, 360)
	Unit         PosENU  // Unit line-of-sight vector in the receiver's ENU frame
}

// Unit line-of-sight vectors in ENU from elevation and azimuth angles [deg]
func ENUUnitVectors(elDeg, azDeg []float64) ([]PosENU, error) {
	if len(elDeg) != len(azDeg) {
		return nil, fmt.Errorf("number of elevations and azimuths differ: %d != %d", len(elDeg), len(azDeg))
	}
	units := make([]PosENU, len(elDeg))
	for i := range elDeg {
		el := ToRad(elDeg[i])
		az := ToRad(azDeg[i])
		units[i] = PosENU{
			E: math.Cos(el) * math.Sin(az),
			N: math.Cos(el) * math.Cos(az),
			U: math.Sin(el),
		}
	}
	return units, nil
}

// Distance of the synthetic satellites built by SatsFromElAz [m]
const SYNTH_SAT_DIST = 20200000.0

// Synthetic satellite positions in the receiver's ENU frame at the given elevation and azimuth [deg]
func SatsFromElAz(elDeg, azDeg []float64) ([]PosENU, error) {
	units, err := ENUUnitVectors(elDeg, azDeg)
	if err != nil {
		return nil, err
	}
	for i := range units {
		units[i].E *= SYNTH_SAT_DIST
		units[i].N *= SYNTH_SAT_DIST
		units[i].U *= SYNTH_SAT_DIST
	}
	return units, nil
}

// Line-of-sight geometry from the receiver to each satellite
func LineOfSights(gpsMillis float64, rx PosXYZ, states []SatelliteState) []LineOfSight {
	los := make([]LineOfSight, len(states))
	el := make([]float64, len(states))
	az := make([]float64, len(states))
	for i, s := range states {
		el[i] = ToDeg(rx.Elevation(s.Pos))
		az[i] = ToDeg(rx.Azimuth(s.Pos))
		if az[i] >= 360 {
			az[i] -= 360
		}
	}
	units, _ := ENUUnitVectors(el, az) // Same length by construction
	for i, s := range states {
		los[i] = LineOfSight{
			Epoch:        gpsMillis,
			Sat:          s.Sat,
			ElevationDeg: el[i],
			AzimuthDeg:   az[i],
			Unit:         units[i],
		}
	}
	return los
}

// Design matrix (n x 4): ENU unit vectors and a column of ones for the receiver clock bias.
// Returns nil if units is empty.
func DesignMatrix(units []PosENU) *mat.Dense {
	if len(units) == 0 {
		return nil
	}
	G := mat.NewDense(len(units), 4, nil)
	for i, u := range units {
		G.Set(i, 0, u.E)
		G.Set(i, 1, u.N)
		G.Set(i, 2, u.U)
		G.Set(i, 3, 1)
	}
	return G
}
