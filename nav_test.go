// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnssdop

import (
	"reflect"
	"strings"
	"testing"
)

func navEphe(sat SatType, sec float64, iode int) *Ephe {
	e := testEphe(sat)
	e.Toc = GTime{Week: 2303, Sec: sec}
	e.Iode = iode
	return e
}

func TestNavAdd(t *testing.T) {
	var nav Nav
	for _, e := range []*Ephe{
		navEphe("G01", 7200, 2),
		navEphe("G01", 0, 1),
		navEphe("G01", 14400, 3),
	} {
		if !nav.Add(e) {
			t.Errorf("Add(%s %v) should succeed", e.Sat, e.Toc)
		}
	}
	if nav.Add(navEphe("G01", 7200, 9)) {
		t.Error("duplicated (satellite, toc) should be ignored")
	}
	list := nav["G01"]
	if len(list) != 3 {
		t.Fatalf("got %d records, want 3", len(list))
	}
	for i, iode := range []int{1, 2, 3} {
		if list[i].Iode != iode {
			t.Errorf("list[%d].Iode = %d, want %d", i, list[i].Iode, iode)
		}
	}
}

func TestNavSelect(t *testing.T) {
	nav := Nav{}
	nav.Add(navEphe("G01", 0, 1))
	nav.Add(navEphe("G01", 7200, 2))
	nav.Add(navEphe("E05", 600, 5))
	nav.Add(navEphe("J02", 7200, 7))
	nav.Add(navEphe("G12", 3600, 12))

	cases := []struct {
		name string
		sec  float64
		sats []SatType
		want []int // Iode in selection order
	}{
		{"before all", 0, nil, []int{}},
		{"strictly before", 7200, nil, []int{1, 12, 5}},
		{"after all", 8000, nil, []int{2, 12, 7, 5}},
		{"subset", 8000, []SatType{"E05", "G01"}, []int{2, 5}},
		{"unknown satellite", 8000, []SatType{"C01"}, []int{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ephs := nav.Select(GTime{Week: 2303, Sec: c.sec}, c.sats)
			got := []int{}
			for _, e := range ephs {
				got = append(got, e.Iode)
			}
			if !reflect.DeepEqual(got, c.want) {
				t.Errorf("got %v, want %v", got, c.want)
			}
		})
	}
}

func TestNavString(t *testing.T) {
	nav := Nav{}
	nav.Add(navEphe("G01", 0, 1))
	nav.Add(navEphe("G01", 7200, 2))
	s := nav.String()
	if !strings.Contains(s, "G01") || !strings.Contains(s, "(2)") {
		t.Errorf("unexpected overview %q", s)
	}
	if e := navEphe("G01", 0, 1); !strings.Contains(e.String(), "SqrtA") {
		t.Errorf("unexpected record dump %q", e.String())
	}
}

func TestSorted(t *testing.T) {
	in := []SatType{"E11", "G12", "R03", "J01", "G02", "C05"}
	want := []SatType{"G02", "G12", "J01", "E11", "R03", "C05"}
	if got := Sorted(in); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if in[0] != "E11" {
		t.Error("input must not be modified")
	}
}
