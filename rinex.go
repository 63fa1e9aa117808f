// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnssdop

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

// RINEX 3.04 specification
// https://files.igs.org/pub/data/format/rinex304.pdf
//

// Supported RINEX versions of navigation files
var NAV_VERSIONS = []string{"3.02", "3.03", "3.04", "3.05"}

var (
	reNavTime  = regexp.MustCompile(`^([GJERCSI])([0-9 ][0-9]) (\d{4}) ([ \d]{2}) ([ \d]{2}) ([ \d]{2}) ([ \d]{2}) ([ \d]{2})`)
	reNavValue = regexp.MustCompile(`[- +\d]{2}\.\d{12}[DE][-+]\d{2}`)
)

// Number of continuation lines of one navigation message by satellite system
var navLines = map[SysType]int{'G': 7, 'J': 7, 'E': 7, 'C': 7, 'I': 7, 'R': 3, 'S': 3}

// Extract HEADER LABEL string from file header line
func getHeaderLabel(l string) string {
	if len(l) < 60 {
		return ""
	}
	return strings.TrimSpace(l[60:])
}

// Read satellite name and ToC from navigation data epoch line
func getNavTime(l string) (gt GTime, sat SatType, err error) {
	ms := reNavTime.FindStringSubmatch(l)
	if ms == nil {
		return gt, sat, fmt.Errorf("regexp match failed. l=%s", l)
	}
	sys := SysType(ms[1][0])
	num, err := strconv.ParseInt(strings.TrimSpace(ms[2]), 10, 0)
	if err != nil {
		return gt, sat, err
	}
	sat = SatType(fmt.Sprintf("%c%02d", sys, num))
	v := [6]int{}
	for i := range v {
		x, err := strconv.ParseInt(strings.TrimSpace(ms[3+i]), 10, 0)
		if err != nil {
			return gt, sat, err
		}
		v[i] = int(x)
	}
	gt = *NewGTime(time.Date(v[0], time.Month(v[1]), v[2], v[3], v[4], v[5], 0, time.UTC))
	return
}

// Read navigation data.
// Keplerian ephemerides of GPS, QZSS and Galileo are kept; other systems are skipped.
func ReadNav(r io.Reader) (*Nav, error) {

	// Flag indicating header reading is complete
	headerDone := false

	// Leap seconds from the header (0 if absent)
	leap := 0

	// Variable to store navigation data
	nav := Nav{}

	// Variable to hold ephemeris information during reading (nil while skipping a message)
	var eph *Ephe

	// Current line number being read, counted from satellite name and ToC line
	lineCount := 0

	// Number of continuation lines of the message being read
	lineTotal := 0

	// Reader to read line by line with newline as delimiter
	s := bufio.NewScanner(r)

	// Read line by line
	for s.Scan() {

		// Read line
		line := s.Text()

		// Process header lines
		if !headerDone {
			switch getHeaderLabel(line) {
			case "RINEX VERSION / TYPE":
				if len(line) < 21 {
					return nil, fmt.Errorf("broken version line: %q", line)
				}
				ver := line[5:9]
				if !slices.Contains(NAV_VERSIONS, ver) {
					return nil, fmt.Errorf("unsupported RINEX version. RINEX version must be one of %v (ver=%s)", NAV_VERSIONS, ver)
				}
				typ := line[20:21]
				if typ != "N" {
					return nil, fmt.Errorf("not a navigation message file (typ=%s)", typ)
				}
			case "LEAP SECONDS":
				f := strings.Fields(line[:60])
				if len(f) > 0 {
					v, err := strconv.Atoi(f[0])
					if err != nil {
						return nil, fmt.Errorf("failed to read leap seconds: %w", err)
					}
					leap = v
				}
			case "END OF HEADER":
				headerDone = true
			}
			continue
		}

		// Process navigation message lines
		if !reNavValue.MatchString(line) {
			continue
		}
		if len(line) < 80 {
			line = line + strings.Repeat(" ", 80-len(line))
		}

		if line[0] != ' ' {
			sys := SysType(line[0])
			lineTotal = navLines[sys]
			lineCount = 0
			eph = nil
			if !sys.IsKeplerian() {
				PrintD(3, "\tskip navigation message of %c\n", sys)
				continue
			}
			var err error
			eph = &Ephe{LeapSeconds: leap}
			eph.Toc, eph.Sat, err = getNavTime(line)
			if err != nil {
				return nil, fmt.Errorf("failed to read time of clock in navigation message: %w", err)
			}
			continue
		}

		lineCount += 1
		if eph == nil || lineCount > lineTotal {
			continue
		}
		v0 := parseFloat(line[4:23])
		v1 := parseFloat(line[23:42])
		v2 := parseFloat(line[42:61])
		v3 := parseFloat(line[61:80])
		switch lineCount {
		case 1:
			eph.Iode = int(v0)
			eph.Crs = v1
			eph.DeltaN = v2
			eph.M0 = v3
		case 2:
			eph.Cuc = v0
			eph.Ecc = v1
			eph.Cus = v2
			eph.SqrtA = v3
		case 3:
			eph.Toe = v0
			eph.Cic = v1
			eph.Omega0 = v2
			eph.Cis = v3
		case 4:
			eph.I0 = v0
			eph.Crc = v1
			eph.Omega = v2
			eph.OmegaD = v3
		case 5:
			eph.Idot = v0
			eph.Week = int(v2) // GPS week (Galileo week is aligned with it)
		case 6:
			eph.Svh = int(v1)
		case 7:
			nav.Add(eph)
			eph = nil
		}
	}

	// Check if reading completed without error
	if err := s.Err(); err != nil {
		return nil, err
	}

	return &nav, nil
}

// Read real values by absorbing variations in exponential notation within RINEX files
func parseFloat(str string) float64 {
	s := strings.TrimSpace(str)
	if strings.ContainsAny(s, "Dd") {
		s = strings.Replace(s, "D", "E", 1)
		s = strings.Replace(s, "d", "e", 1)
	}
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
