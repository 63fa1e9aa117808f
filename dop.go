// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

// Implements dilution of precision (DOP) calculation from receiver to satellite geometry.

package gnssdop

import (
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Minimum number of satellites to solve for position and clock
const MIN_SATS_FOR_DOP = 4

// Axis order of the DOP matrix
const (
	EAST = iota
	NORTH
	UP
	TIME
)

// DOP matrix ((G^T G)^-1 over East, North, Up, Time) and scalar DOP values for one epoch.
// All values are NaN when the geometry is not usable.
type DOP struct {
	Matrix [4][4]float64
	GDOP   float64
	HDOP   float64
	VDOP   float64
	PDOP   float64
	TDOP   float64
}

// DOP with every value set to NaN
func NaNDOP() DOP {
	nan := math.NaN()
	d := DOP{GDOP: nan, HDOP: nan, VDOP: nan, PDOP: nan, TDOP: nan}
	for i := range 4 {
		for j := range 4 {
			d.Matrix[i][j] = nan
		}
	}
	return d
}

// Whether the DOP was computed from usable geometry
func (d *DOP) IsValid() bool {
	return !math.IsNaN(d.GDOP)
}

// Calculate DOP from the line-of-sight geometry of one epoch.
// Never fails: with less than 4 satellites or degenerate geometry every value is NaN.
func CalcDOP(los []LineOfSight) DOP {
	units := make([]PosENU, len(los))
	for i := range los {
		units[i] = los[i].Unit
	}
	return calcDOP(units)
}

// Calculate DOP from elevation and azimuth angles [deg]
func CalcDOPFromElAz(elDeg, azDeg []float64) (DOP, error) {
	units, err := ENUUnitVectors(elDeg, azDeg)
	if err != nil {
		return NaNDOP(), err
	}
	return calcDOP(units), nil
}

func calcDOP(units []PosENU) DOP {
	dopEpochs.Inc()

	if len(units) < MIN_SATS_FOR_DOP {
		PrintD(2, "\tDOP: not enough satellites: %d < %d\n", len(units), MIN_SATS_FOR_DOP)
		dopSingular.Inc()
		return NaNDOP()
	}

	G := DesignMatrix(units)
	if DBG_ >= 4 {
		PrintA("G=\n")
		PrintMat(G)
	}

	// Rank deficient geometry (e.g. identical lines of sight)
	if r := matrixRank(G); r < 4 {
		PrintD(2, "\tDOP: rank of G is %d\n", r)
		dopSingular.Inc()
		return NaNDOP()
	}

	var GtG mat.Dense
	GtG.Mul(G.T(), G)
	var cov mat.Dense
	if err := cov.Inverse(&GtG); err != nil {
		PrintD(2, "\tDOP: failed to calculate inverse of matrix, G^T G: %s\n", err.Error())
		dopSingular.Inc()
		return NaNDOP()
	}

	var d DOP
	for j := range 4 {
		for k := range 4 {
			d.Matrix[j][k] = (cov.At(j, k) + cov.At(k, j)) / 2
		}
	}
	ee := d.Matrix[EAST][EAST]
	nn := d.Matrix[NORTH][NORTH]
	uu := d.Matrix[UP][UP]
	tt := d.Matrix[TIME][TIME]
	d.GDOP = math.Sqrt(ee + nn + uu + tt)
	d.PDOP = math.Sqrt(ee + nn + uu)
	d.HDOP = math.Sqrt(ee + nn)
	d.VDOP = math.Sqrt(uu)
	d.TDOP = math.Sqrt(tt)
	return d
}

// Numerical rank of A from its singular values
func matrixRank(A mat.Matrix) int {
	var svd mat.SVD
	if ok := svd.Factorize(A, mat.SVDNone); !ok {
		return 0
	}
	s := svd.Values(nil)
	if len(s) == 0 {
		return 0
	}
	r, c := A.Dims()
	tol := s[0] * float64(max(r, c)) * 2.220446049250313e-16
	rank := 0
	for _, v := range s {
		if v > tol {
			rank++
		}
	}
	return rank
}

// Selection of DOP values output by SelectDOP
type DOPSelection struct {
	GDOP   bool
	HDOP   bool
	VDOP   bool
	PDOP   bool
	TDOP   bool
	Matrix bool // All 10 independent entries of the DOP matrix
}

// Default selection: HDOP and VDOP
func NewDOPSelection() DOPSelection {
	return DOPSelection{HDOP: true, VDOP: true}
}

// Label of the epoch column
const EPOCH_LABEL = "gps_millis"

// Labels of the independent DOP matrix entries in output order, and their indexes
var (
	DOP_MATRIX_LABELS = [10]string{"dop_ee", "dop_en", "dop_eu", "dop_et", "dop_nn", "dop_nu", "dop_nt", "dop_uu", "dop_ut", "dop_tt"}
	dopMatrixRows     = [10]int{0, 0, 0, 0, 1, 1, 1, 2, 2, 3}
	dopMatrixCols     = [10]int{0, 1, 2, 3, 1, 2, 3, 2, 3, 3}
)

// DOP values per epoch
type DOPTable struct {
	Labels []string // Column labels. The first one is EPOCH_LABEL
	Rows   []DOPRow // One row per epoch in ascending order
}

type DOPRow struct {
	Epoch  float64   // [GPS ms]
	Values []float64 // Aligned with Labels[1:]
}

// Values of one column. ok is false if the label is not in the table.
func (t *DOPTable) Column(label string) (col []float64, ok bool) {
	for j, l := range t.Labels {
		if l != label {
			continue
		}
		col = make([]float64, len(t.Rows))
		for i, row := range t.Rows {
			if j == 0 {
				col[i] = row.Epoch
			} else {
				col[i] = row.Values[j-1]
			}
		}
		return col, true
	}
	return nil, false
}

// Calculate DOP for every unique epoch in los and return the selected values,
// one row per epoch in ascending order. Epochs are computed in parallel.
func SelectDOP(los []LineOfSight, sel DOPSelection) *DOPTable {

	// Group by epoch (records without a valid epoch cannot be grouped)
	groups := map[float64][]LineOfSight{}
	for _, l := range los {
		if math.IsNaN(l.Epoch) {
			PrintD(1, "\tDOP: %s: line of sight without epoch ignored\n", l.Sat)
			continue
		}
		groups[l.Epoch] = append(groups[l.Epoch], l)
	}
	epochs := make([]float64, 0, len(groups))
	for ep := range groups {
		epochs = append(epochs, ep)
	}
	sort.Float64s(epochs)

	// Each epoch is independent; a worker writes only its own slot
	dops := make([]DOP, len(epochs))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, ep := range epochs {
		g.Go(func() error {
			dops[i] = CalcDOP(groups[ep])
			return nil
		})
	}
	_ = g.Wait() // Workers never fail

	tbl := &DOPTable{Labels: dopLabels(sel), Rows: make([]DOPRow, len(epochs))}
	for i, ep := range epochs {
		tbl.Rows[i] = DOPRow{Epoch: ep, Values: dopValues(&dops[i], sel)}
	}
	return tbl
}

// Add a NaN row for each epoch that has no row yet, keeping ascending order.
// NaN epochs are ignored.
func (t *DOPTable) Fill(epochs []float64) {
	have := make(map[float64]bool, len(t.Rows))
	for _, row := range t.Rows {
		have[row.Epoch] = true
	}
	for _, ep := range epochs {
		if math.IsNaN(ep) || have[ep] {
			continue
		}
		have[ep] = true
		v := make([]float64, len(t.Labels)-1)
		for i := range v {
			v[i] = math.NaN()
		}
		t.Rows = append(t.Rows, DOPRow{Epoch: ep, Values: v})
	}
	sort.SliceStable(t.Rows, func(i, j int) bool { return t.Rows[i].Epoch < t.Rows[j].Epoch })
}

func dopLabels(sel DOPSelection) []string {
	labels := []string{EPOCH_LABEL}
	if sel.GDOP {
		labels = append(labels, "GDOP")
	}
	if sel.HDOP {
		labels = append(labels, "HDOP")
	}
	if sel.VDOP {
		labels = append(labels, "VDOP")
	}
	if sel.PDOP {
		labels = append(labels, "PDOP")
	}
	if sel.TDOP {
		labels = append(labels, "TDOP")
	}
	if sel.Matrix {
		labels = append(labels, DOP_MATRIX_LABELS[:]...)
	}
	return labels
}

func dopValues(d *DOP, sel DOPSelection) []float64 {
	v := []float64{}
	if sel.GDOP {
		v = append(v, d.GDOP)
	}
	if sel.HDOP {
		v = append(v, d.HDOP)
	}
	if sel.VDOP {
		v = append(v, d.VDOP)
	}
	if sel.PDOP {
		v = append(v, d.PDOP)
	}
	if sel.TDOP {
		v = append(v, d.TDOP)
	}
	if sel.Matrix {
		for k := range DOP_MATRIX_LABELS {
			v = append(v, d.Matrix[dopMatrixRows[k]][dopMatrixCols[k]])
		}
	}
	return v
}
