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
	"testing"
)

// Five satellites with a known closed-form DOP
var (
	scenarioEl = []float64{0, 0, 45, 45, 90}
	scenarioAz = []float64{0, 90, 180, 270, 360}
)

func TestENUUnitVectors(t *testing.T) {
	h := math.Sqrt(2) / 2
	want := []PosENU{
		{E: 0, N: 1, U: 0},
		{E: 1, N: 0, U: 0},
		{E: 0, N: -h, U: h},
		{E: -h, N: 0, U: h},
		{E: 0, N: 0, U: 1},
	}
	units, err := ENUUnitVectors(scenarioEl, scenarioAz)
	if err != nil {
		t.Fatalf("ENUUnitVectors failed: %v", err)
	}
	for i, u := range units {
		w := want[i]
		if math.Abs(u.E-w.E) > 1e-6 || math.Abs(u.N-w.N) > 1e-6 || math.Abs(u.U-w.U) > 1e-6 {
			t.Errorf("unit[%d] = %+v, want %+v", i, u, w)
		}
		if math.Abs(u.Norm()-1) > 1e-6 {
			t.Errorf("|unit[%d]| = %v", i, u.Norm())
		}
	}
}

func TestENUUnitVectorsNorm(t *testing.T) {
	el := []float64{}
	az := []float64{}
	for e := -10.0; e <= 90; e += 7.5 {
		for a := 0.0; a < 360; a += 33 {
			el = append(el, e)
			az = append(az, a)
		}
	}
	units, err := ENUUnitVectors(el, az)
	if err != nil {
		t.Fatalf("ENUUnitVectors failed: %v", err)
	}
	for i, u := range units {
		if math.Abs(u.Norm()-1) > 1e-6 {
			t.Errorf("el=%v az=%v: |unit| = %v", el[i], az[i], u.Norm())
		}
	}
}

func TestENUUnitVectorsLengthMismatch(t *testing.T) {
	if _, err := ENUUnitVectors([]float64{10, 20}, []float64{30}); err == nil {
		t.Error("expected error for length mismatch")
	}
}

func TestLineOfSights(t *testing.T) {
	rx := PosXYZ{X: Re, Y: 0, Z: 0}
	states := []SatelliteState{
		{Sat: "G01", Pos: PosXYZ{X: Re + 2e7, Y: 0, Z: 0}},
		{Sat: "G02", Pos: PosXYZ{X: Re + 1e7, Y: 1e7, Z: 0}},
		{Sat: "G03", Pos: PosXYZ{X: Re + 1e7, Y: -1e7, Z: 0}},
		{Sat: "G04", Pos: PosXYZ{X: Re, Y: 0, Z: 2e7}},
	}
	want := []struct{ el, az float64 }{
		{90, -1}, // azimuth undefined at zenith
		{45, 90},
		{45, 270},
		{0, 0},
	}
	los := LineOfSights(1000, rx, states)
	if len(los) != len(states) {
		t.Fatalf("got %d, want %d", len(los), len(states))
	}
	for i, l := range los {
		if l.Epoch != 1000 || l.Sat != states[i].Sat {
			t.Errorf("los[%d] header = %v %s", i, l.Epoch, l.Sat)
		}
		if math.Abs(l.ElevationDeg-want[i].el) > 1e-9 {
			t.Errorf("los[%d] el = %v, want %v", i, l.ElevationDeg, want[i].el)
		}
		if want[i].az >= 0 && math.Abs(l.AzimuthDeg-want[i].az) > 1e-9 {
			t.Errorf("los[%d] az = %v, want %v", i, l.AzimuthDeg, want[i].az)
		}
		if l.AzimuthDeg < 0 || l.AzimuthDeg >= 360 {
			t.Errorf("los[%d] az = %v out of [0, 360)", i, l.AzimuthDeg)
		}
		if math.Abs(l.Unit.Norm()-1) > 1e-6 {
			t.Errorf("|los[%d].Unit| = %v", i, l.Unit.Norm())
		}
	}
}

func TestDesignMatrix(t *testing.T) {
	if G := DesignMatrix(nil); G != nil {
		t.Error("expected nil for no satellites")
	}
	units, _ := ENUUnitVectors(scenarioEl, scenarioAz)
	G := DesignMatrix(units)
	r, c := G.Dims()
	if r != 5 || c != 4 {
		t.Fatalf("dims = %dx%d, want 5x4", r, c)
	}
	for i, u := range units {
		if G.At(i, 0) != u.E || G.At(i, 1) != u.N || G.At(i, 2) != u.U || G.At(i, 3) != 1 {
			t.Errorf("row %d = %v %v %v %v", i, G.At(i, 0), G.At(i, 1), G.At(i, 2), G.At(i, 3))
		}
	}
}

func TestSatsFromElAz(t *testing.T) {
	el := []float64{10, 35, 60, 85}
	az := []float64{20, 140, 250, 330}
	sats, err := SatsFromElAz(el, az)
	if err != nil {
		t.Fatalf("SatsFromElAz failed: %v", err)
	}

	// Placed around a receiver, the synthetic satellites are seen at the requested angles
	rx := PosLLH{Lat: ToRad(35.68), Lon: ToRad(139.77), Hei: 40}
	rxXYZ := rx.ToXYZ()
	states := make([]SatelliteState, len(sats))
	for i := range sats {
		if math.Abs(sats[i].Norm()-SYNTH_SAT_DIST) > 1e-6 {
			t.Errorf("|sat[%d]| = %v, want %v", i, sats[i].Norm(), SYNTH_SAT_DIST)
		}
		states[i] = SatelliteState{Sat: SatType(fmt.Sprintf("G%02d", i+1)), Pos: sats[i].ToXYZ(rxXYZ)}
	}
	for i, l := range LineOfSights(0, rxXYZ, states) {
		if math.Abs(l.ElevationDeg-el[i]) > 1e-6 || math.Abs(l.AzimuthDeg-az[i]) > 1e-6 {
			t.Errorf("sat[%d] seen at el=%v az=%v, want %v %v", i, l.ElevationDeg, l.AzimuthDeg, el[i], az[i])
		}
	}

	if _, err := SatsFromElAz([]float64{10}, nil); err == nil {
		t.Error("expected error for length mismatch")
	}
}
