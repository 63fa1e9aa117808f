// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnssdop

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/exp/slices"
)

// Structure to store ephemeris (broadcast orbit for one satellite, one issue)
type Ephe struct {
	Sat         SatType
	Toc         GTime   // Broadcast time of clock (key together with Sat)
	Toe         float64 // Reference time of ephemeris [s of week]
	Week        int     // GPS week of Toe (not truncated to 10 bits)
	LeapSeconds int     // GPS-UTC leap seconds from the file header
	Iode        int
	Svh         int

	SqrtA  float64 // Square root of the semi-major axis [m^1/2]
	Ecc    float64 // Eccentricity
	M0     float64 // Mean anomaly at reference time [rad]
	Omega  float64 // Argument of perigee [rad]
	Omega0 float64 // Longitude of ascending node at weekly epoch [rad]
	OmegaD float64 // Rate of right ascension [rad/s]
	DeltaN float64 // Mean motion difference [rad/s]
	I0     float64 // Inclination at reference time [rad]
	Idot   float64 // Rate of inclination [rad/s]
	Cuc    float64
	Cus    float64
	Crc    float64
	Crs    float64
	Cic    float64
	Cis    float64
}

func (e *Ephe) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### Nav. for %s (%c, %d)\n", e.Sat, e.Sat.Sys(), e.Sat.Num())
	fmt.Fprintf(&sb, "    Toc: %v (%v)\n", e.Toc.ToTime().UTC(), e.Toc)
	fmt.Fprintf(&sb, "    Toe: %v (week %d)\n", e.Toe, e.Week)
	fmt.Fprintf(&sb, "   Iode: %v\n", e.Iode)
	fmt.Fprintf(&sb, "    Svh: %v\n", e.Svh)
	fmt.Fprintf(&sb, "  SqrtA: %v\n", e.SqrtA)
	fmt.Fprintf(&sb, "    Ecc: %v\n", e.Ecc)
	fmt.Fprintf(&sb, "     M0: %v\n", e.M0)
	fmt.Fprintf(&sb, "  Omega: %v\n", e.Omega)
	fmt.Fprintf(&sb, " Omega0: %v\n", e.Omega0)
	fmt.Fprintf(&sb, " OmegaD: %v\n", e.OmegaD)
	fmt.Fprintf(&sb, " DeltaN: %v\n", e.DeltaN)
	fmt.Fprintf(&sb, "     I0: %v\n", e.I0)
	fmt.Fprintf(&sb, "   Idot: %v\n", e.Idot)
	fmt.Fprintf(&sb, "    Cuc: %v\n", e.Cuc)
	fmt.Fprintf(&sb, "    Cus: %v\n", e.Cus)
	fmt.Fprintf(&sb, "    Crc: %v\n", e.Crc)
	fmt.Fprintf(&sb, "    Crs: %v\n", e.Crs)
	fmt.Fprintf(&sb, "    Cic: %v\n", e.Cic)
	fmt.Fprintf(&sb, "    Cis: %v\n", e.Cis)
	fmt.Fprintf(&sb, "   Leap: %v\n", e.LeapSeconds)
	return sb.String()
}

// Structure to store navigation data for each satellite
// - Map with satellite name as Key and slice sorted by time of clock (Toc) in ascending order as Value
type Nav map[SatType][]*Ephe

// Add an ephemeris. At most one record is kept per (satellite, Toc); the first one wins.
func (nav *Nav) Add(eph *Ephe) bool {
	if *nav == nil {
		*nav = Nav{}
	}
	list := (*nav)[eph.Sat]
	i := sort.Search(len(list), func(i int) bool { return !list[i].Toc.Less(eph.Toc, false) })
	if i < len(list) && list[i].Toc == eph.Toc {
		PrintD(3, "\t%s: duplicated ephemeris (toc=%v) ignored\n", eph.Sat, eph.Toc)
		return false
	}
	(*nav)[eph.Sat] = slices.Insert(list, i, eph)
	return true
}

// Select, for each satellite, the newest ephemeris broadcast strictly before the specified time.
// - If sats is nil, all satellites are considered
func (nav *Nav) Select(gt GTime, sats []SatType) []*Ephe {
	keys := make([]SatType, 0, len(*nav))
	for k := range *nav {
		if sats != nil && !slices.Contains(sats, k) {
			continue
		}
		keys = append(keys, k)
	}
	ephs := make([]*Ephe, 0, len(keys))
	for _, sat := range Sorted(keys) {
		list := (*nav)[sat]
		// Search from newest and take the first one broadcast before gt
		for i := len(list) - 1; i >= 0; i-- {
			if list[i].Toc.Less(gt, false) {
				ephs = append(ephs, list[i])
				break
			}
		}
	}
	return ephs
}

// Display navigation data overview
func (p *Nav) String() string {
	keys := []SatType{}
	for k := range *p {
		keys = append(keys, k)
	}
	keys = Sorted(keys)
	var sb strings.Builder
	sb.WriteString("toc:\n")
	for _, sat := range keys {
		sb.WriteString(fmt.Sprintf("\t%s: ", sat))
		if len((*p)[sat]) > 0 {
			st := (*p)[sat][0].Toc
			et := (*p)[sat][len((*p)[sat])-1].Toc
			sb.WriteString(fmt.Sprintf("%s - %s (%d)\n",
				st.ToTime().UTC().Format("2006/01/02 15:04:05.000"), et.ToTime().UTC().Format("2006/01/02 15:04:05.000"), len((*p)[sat])))
		} else {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
