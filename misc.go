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
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gonum.org/v1/gonum/mat"
)

// ------------------------------------
// Mini functions
// ------------------------------------

func SQ(x float64) float64 {
	return x * x
}

func EucDist(a, b *PosXYZ) float64 {
	return math.Sqrt(SQ(a.X-b.X) + SQ(a.Y-b.Y) + SQ(a.Z-b.Z))
}

func ToDeg(rad float64) float64 {
	return rad / PI * 180.0
}

func ToRad(deg float64) float64 {
	return deg / 180.0 * PI
}

// ------------------------------------
// Debug print function
// ------------------------------------

func PrintMat(X mat.Matrix) {
	r, c := X.Dims()
	fmt.Fprintf(os.Stderr, "(%d x %d)\n", r, c)
	fa := mat.Formatted(X, mat.Prefix(""), mat.Squeeze())
	fmt.Fprintf(os.Stderr, "%v\n", fa)
}

func PrintA(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format, a...)
}

func PrintAIf(cond bool, format string, a ...any) {
	if cond {
		PrintA(format, a...)
	}
}

func PrintB(t GTime, format string, a ...any) {
	fmt.Fprintf(os.Stderr, t.ToTime().UTC().Format("2006-01-02T15:04:05.000000")+"\t"+format, a...)
}

// Debug display level
var DBG_ int

// Debug display
func PrintD(v int, format string, a ...any) {
	PrintAIf(DBG_ >= v, format, a...)
}

func PrintE(err error) {
	fmt.Fprintf(os.Stderr, "err=%s\n", err.Error())
}

// ------------------------------------
// For command argument parsing
// ------------------------------------

var (
	_ pflag.Value = (*SatVar)(nil)
	_ pflag.Value = (*TimeStr)(nil)
	_ pflag.Value = (*PosLLH)(nil)
	_ pflag.Value = (*PosXYZ)(nil)
)

// List of satellites like "G05,E11"
type SatVar []SatType

func (p *SatVar) Set(s string) error {
	*p = []SatType{}
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if len(a) < 3 {
			return fmt.Errorf("invalid satellite name: %q", a)
		}
		*p = append(*p, SatType(a))
	}
	return nil
}

func (p *SatVar) String() string {
	s := make([]string, len(*p))
	for i, sat := range *p {
		s[i] = string(sat)
	}
	return strings.Join(s, ",")
}

func (p *SatVar) Type() string {
	return "sats"
}

// Date and Time Parser (for command arguments)
type TimeStr time.Time

const TIME_STR_LAYOUT = "2006/01/02 15:04:05"

func (p *TimeStr) UnmarshalText(text []byte) error {
	s := string(text)
	t, err := time.Parse(TIME_STR_LAYOUT, s)
	if err != nil {
		return err
	}
	*p = TimeStr(t)
	return nil
}

func (p *TimeStr) Set(s string) error {
	return p.UnmarshalText([]byte(s))
}

func (p *TimeStr) String() string {
	if time.Time(*p).IsZero() {
		return ""
	}
	return time.Time(*p).Format(TIME_STR_LAYOUT)
}

func (p *TimeStr) Type() string {
	return "time"
}
