// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnssdop

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

const dopTol = 1e-9

// Closed-form DOP matrix of the five satellite scenario
func scenarioMatrix() [4][4]float64 {
	s2 := math.Sqrt(2)
	m := [4][4]float64{
		{25.0/3 - 2*s2, 17.0/3 - 2*s2, 5 + s2, -5 + s2},
		{17.0/3 - 2*s2, 25.0/3 - 2*s2, 5 + s2, -5 + s2},
		{5 + s2, 5 + s2, 9 + 4*s2, -5 - 2*s2},
		{-5 + s2, -5 + s2, -5 - 2*s2, 5},
	}
	for i := range 4 {
		for j := range 4 {
			m[i][j] *= 0.25
		}
	}
	return m
}

// Line-of-sight records of one epoch from elevation and azimuth angles [deg]
func testLos(t *testing.T, epoch float64, el, az []float64) []LineOfSight {
	t.Helper()
	units, err := ENUUnitVectors(el, az)
	if err != nil {
		t.Fatalf("ENUUnitVectors failed: %v", err)
	}
	los := make([]LineOfSight, len(units))
	for i := range units {
		los[i] = LineOfSight{Epoch: epoch, ElevationDeg: el[i], AzimuthDeg: az[i], Unit: units[i]}
	}
	return los
}

func assertNaNDOP(t *testing.T, d DOP) {
	t.Helper()
	for _, v := range []float64{d.GDOP, d.HDOP, d.VDOP, d.PDOP, d.TDOP} {
		if !math.IsNaN(v) {
			t.Errorf("expected NaN, got %v", v)
		}
	}
	for i := range 4 {
		for j := range 4 {
			if !math.IsNaN(d.Matrix[i][j]) {
				t.Errorf("matrix[%d][%d] = %v, expected NaN", i, j, d.Matrix[i][j])
			}
		}
	}
	if d.IsValid() {
		t.Error("IsValid should be false")
	}
}

func TestCalcDOPScenario(t *testing.T) {
	d, err := CalcDOPFromElAz(scenarioEl, scenarioAz)
	if err != nil {
		t.Fatalf("CalcDOPFromElAz failed: %v", err)
	}
	want := scenarioMatrix()
	for i := range 4 {
		for j := range 4 {
			if math.Abs(d.Matrix[i][j]-want[i][j]) > dopTol {
				t.Errorf("matrix[%d][%d] = %v, want %v", i, j, d.Matrix[i][j], want[i][j])
			}
		}
	}

	s2 := math.Sqrt(2)
	scalars := []struct {
		name      string
		got, want float64
	}{
		{"GDOP", d.GDOP, math.Sqrt(23.0 / 3)},
		{"HDOP", d.HDOP, math.Sqrt(25.0/6 - s2)},
		{"VDOP", d.VDOP, math.Sqrt(9.0/4 + s2)},
		{"PDOP", d.PDOP, 0.5 * math.Sqrt(77.0/3)},
		{"TDOP", d.TDOP, 0.5 * math.Sqrt(5)},
	}
	for _, s := range scalars {
		if math.Abs(s.got-s.want) > dopTol {
			t.Errorf("%s = %v, want %v", s.name, s.got, s.want)
		}
	}
	if !d.IsValid() {
		t.Error("IsValid should be true")
	}
}

func TestCalcDOPIdentities(t *testing.T) {
	cases := []struct {
		name   string
		el, az []float64
	}{
		{"scenario", scenarioEl, scenarioAz},
		{"four", []float64{15, 35, 60, 85}, []float64{10, 130, 250, 40}},
		{"eight", []float64{10, 20, 30, 40, 50, 60, 70, 80}, []float64{0, 45, 90, 135, 180, 225, 270, 315}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := CalcDOP(testLos(t, 0, c.el, c.az))
			if !d.IsValid() {
				t.Fatal("expected valid DOP")
			}
			for i := range 4 {
				for j := range 4 {
					if d.Matrix[i][j] != d.Matrix[j][i] {
						t.Errorf("matrix not symmetric at (%d, %d)", i, j)
					}
				}
			}
			m := d.Matrix
			checks := []struct {
				name      string
				got, want float64
			}{
				{"HDOP^2", d.HDOP * d.HDOP, m[EAST][EAST] + m[NORTH][NORTH]},
				{"VDOP^2", d.VDOP * d.VDOP, m[UP][UP]},
				{"TDOP^2", d.TDOP * d.TDOP, m[TIME][TIME]},
				{"PDOP^2", d.PDOP * d.PDOP, d.HDOP*d.HDOP + d.VDOP*d.VDOP},
				{"GDOP^2", d.GDOP * d.GDOP, d.PDOP*d.PDOP + d.TDOP*d.TDOP},
			}
			for _, ck := range checks {
				if math.Abs(ck.got-ck.want) > 1e-9*math.Max(1, ck.want) {
					t.Errorf("%s = %v, want %v", ck.name, ck.got, ck.want)
				}
			}
		})
	}
}

func TestCalcDOPUnusableGeometry(t *testing.T) {
	cases := []struct {
		name   string
		el, az []float64
	}{
		{"no satellites", nil, nil},
		{"too few", []float64{20, 30}, []float64{30, 60}},
		{"three", []float64{20, 30, 80}, []float64{30, 160, 290}},
		{"identical", []float64{30, 30, 30, 30, 30}, []float64{90, 90, 90, 90, 90}},
		{"two directions", []float64{10, 10, 10, 60, 60, 60}, []float64{45, 45, 45, 200, 200, 200}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			singular := testutil.ToFloat64(dopSingular)
			d, err := CalcDOPFromElAz(c.el, c.az)
			if err != nil {
				t.Fatalf("CalcDOPFromElAz failed: %v", err)
			}
			assertNaNDOP(t, d)
			if got := testutil.ToFloat64(dopSingular) - singular; got != 1 {
				t.Errorf("singular counter increased by %v, want 1", got)
			}
		})
	}
}

func TestCalcDOPLengthMismatch(t *testing.T) {
	d, err := CalcDOPFromElAz([]float64{10, 20, 30, 40}, []float64{0, 90, 180})
	if err == nil {
		t.Error("expected error for length mismatch")
	}
	assertNaNDOP(t, d)
}

func TestSelectDOPLabels(t *testing.T) {
	all := append([]string{EPOCH_LABEL, "GDOP", "HDOP", "VDOP", "PDOP", "TDOP"}, DOP_MATRIX_LABELS[:]...)
	cases := []struct {
		name string
		sel  DOPSelection
		want []string
	}{
		{"default", NewDOPSelection(), []string{"gps_millis", "HDOP", "VDOP"}},
		{"none", DOPSelection{}, []string{"gps_millis"}},
		{"gdop", DOPSelection{GDOP: true}, []string{"gps_millis", "GDOP"}},
		{"pdop and tdop", DOPSelection{TDOP: true, PDOP: true}, []string{"gps_millis", "PDOP", "TDOP"}},
		{"matrix", DOPSelection{Matrix: true}, append([]string{"gps_millis"}, DOP_MATRIX_LABELS[:]...)},
		{"all", DOPSelection{GDOP: true, HDOP: true, VDOP: true, PDOP: true, TDOP: true, Matrix: true}, all},
	}
	los := testLos(t, 1000, scenarioEl, scenarioAz)
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sel := c.sel
			tbl := SelectDOP(los, sel)
			if sel != c.sel {
				t.Error("selection must not be modified")
			}
			if !reflect.DeepEqual(tbl.Labels, c.want) {
				t.Errorf("labels = %v, want %v", tbl.Labels, c.want)
			}
			if len(tbl.Rows) != 1 || len(tbl.Rows[0].Values) != len(c.want)-1 {
				t.Fatalf("unexpected table shape: %+v", tbl.Rows)
			}
		})
	}
}

func TestSelectDOPValues(t *testing.T) {
	los := testLos(t, 1000, scenarioEl, scenarioAz)
	tbl := SelectDOP(los, DOPSelection{GDOP: true, HDOP: true, VDOP: true, PDOP: true, TDOP: true, Matrix: true})
	want := scenarioMatrix()
	for k, label := range DOP_MATRIX_LABELS {
		col, ok := tbl.Column(label)
		if !ok {
			t.Fatalf("column %s not found", label)
		}
		w := want[dopMatrixRows[k]][dopMatrixCols[k]]
		if math.Abs(col[0]-w) > dopTol {
			t.Errorf("%s = %v, want %v", label, col[0], w)
		}
	}
	hdop, _ := tbl.Column("HDOP")
	if math.Abs(hdop[0]-math.Sqrt(25.0/6-math.Sqrt(2))) > dopTol {
		t.Errorf("HDOP = %v", hdop[0])
	}
	epochs, ok := tbl.Column(EPOCH_LABEL)
	if !ok || epochs[0] != 1000 {
		t.Errorf("epoch column = %v, %v", epochs, ok)
	}
	if _, ok := tbl.Column("XDOP"); ok {
		t.Error("unknown label should not be found")
	}
}

func TestSelectDOPEpochs(t *testing.T) {
	// Epochs given out of order and interleaved; the middle epoch has too few satellites
	e3 := testLos(t, 3000, scenarioEl, scenarioAz)
	e1 := testLos(t, 1000, scenarioEl, scenarioAz)
	e2 := testLos(t, 2000, []float64{20, 30}, []float64{30, 60})
	los := []LineOfSight{}
	los = append(los, e3[:2]...)
	los = append(los, e2...)
	los = append(los, e1...)
	los = append(los, e3[2:]...)
	orig := make([]LineOfSight, len(los))
	copy(orig, los)

	epochs := testutil.ToFloat64(dopEpochs)
	tbl := SelectDOP(los, NewDOPSelection())
	if got := testutil.ToFloat64(dopEpochs) - epochs; got != 3 {
		t.Errorf("epoch counter increased by %v, want 3", got)
	}
	if !reflect.DeepEqual(los, orig) {
		t.Error("input must not be modified")
	}

	if len(tbl.Rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(tbl.Rows))
	}
	hdop := math.Sqrt(25.0/6 - math.Sqrt(2))
	for i, ep := range []float64{1000, 2000, 3000} {
		row := tbl.Rows[i]
		if row.Epoch != ep {
			t.Errorf("row %d epoch = %v, want %v", i, row.Epoch, ep)
		}
		if ep == 2000 {
			if !math.IsNaN(row.Values[0]) || !math.IsNaN(row.Values[1]) {
				t.Errorf("row %d = %v, want NaN", i, row.Values)
			}
			continue
		}
		if math.Abs(row.Values[0]-hdop) > dopTol {
			t.Errorf("row %d HDOP = %v, want %v", i, row.Values[0], hdop)
		}
	}
}

func TestSelectDOPEmpty(t *testing.T) {
	tbl := SelectDOP(nil, NewDOPSelection())
	if len(tbl.Rows) != 0 || len(tbl.Labels) != 3 {
		t.Errorf("unexpected table %+v", tbl)
	}
}

func TestWriteMetrics(t *testing.T) {
	CalcDOP(testLos(t, 0, scenarioEl, scenarioAz))
	fn := filepath.Join(t.TempDir(), "gnssdop.prom")
	if err := WriteMetrics(fn); err != nil {
		t.Fatalf("WriteMetrics failed: %v", err)
	}
	b, err := os.ReadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"gnssdop_dop_epochs_total", "gnssdop_visible_satellites_bucket"} {
		if !strings.Contains(string(b), name) {
			t.Errorf("%s not found in metrics file", name)
		}
	}
}

func TestSelectDOPNaNEpoch(t *testing.T) {
	los := testLos(t, math.NaN(), scenarioEl, scenarioAz)
	los = append(los, testLos(t, 1000, scenarioEl, scenarioAz)...)
	tbl := SelectDOP(los, NewDOPSelection())
	if len(tbl.Rows) != 1 || tbl.Rows[0].Epoch != 1000 {
		t.Fatalf("rows = %+v, want one row at 1000", tbl.Rows)
	}
	if math.IsNaN(tbl.Rows[0].Values[0]) {
		t.Error("records without epoch must not affect other epochs")
	}
}

func TestDOPTableFill(t *testing.T) {
	los := testLos(t, 2000, scenarioEl, scenarioAz)
	tbl := SelectDOP(los, DOPSelection{GDOP: true, Matrix: true})
	tbl.Fill([]float64{3000, 1000, 2000, math.NaN(), 1000})

	want := []float64{1000, 2000, 3000}
	if len(tbl.Rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(tbl.Rows), len(want))
	}
	for i, row := range tbl.Rows {
		if row.Epoch != want[i] {
			t.Errorf("row %d epoch = %v, want %v", i, row.Epoch, want[i])
		}
		if len(row.Values) != len(tbl.Labels)-1 {
			t.Errorf("row %d has %d values, want %d", i, len(row.Values), len(tbl.Labels)-1)
		}
		for _, v := range row.Values {
			if math.IsNaN(v) != (row.Epoch != 2000) {
				t.Errorf("row %d value %v", i, v)
				break
			}
		}
	}
}
