// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnssdop

import (
	"math"
	"time"
)

// GPS week and time of week [s]
type GTime struct {
	Week int
	Sec  float64
}

// GPS time starts from 1980/1/6 00:00:00
var gpsEpoch = time.Date(1980, 1, 6, 0, 0, 0, 0, time.UTC)

func NewGTime(dt time.Time) *GTime {
	t := dt.Unix()
	t -= gpsEpoch.Unix() // Elapsed seconds since 1980/1/6 00:00:00
	return &GTime{
		Week: int(t / (3600 * 24 * 7)),
		Sec:  float64(t%(3600*24*7)) + float64(dt.Nanosecond())/1000000000,
	}
}

// Build from milliseconds elapsed since the GPS epoch
func NewGTimeFromMillis(ms float64) *GTime {
	week := math.Floor(ms / (WeekSec * 1000))
	return &GTime{
		Week: int(week),
		Sec:  (ms - week*WeekSec*1000) / 1000,
	}
}

// Milliseconds elapsed since the GPS epoch
func (p *GTime) Millis() float64 {
	return float64(p.Week)*WeekSec*1000 + p.Sec*1000
}

func (p *GTime) ToTime() time.Time {
	o := gpsEpoch.Unix()
	i := int64(math.Floor(p.Sec))
	t := int64(3600*24*7*p.Week) + i + o
	n := int64(math.Round((p.Sec - float64(i)) * 1e9))
	return time.Unix(t, n) // Unix time is the elapsed seconds since 1970/1/1 00:00:00
}

func (p *GTime) Less(b GTime, roundSec bool) bool {
	if p.Week == b.Week {
		if roundSec {
			return math.Round(p.Sec) < math.Round(b.Sec)
		} else {
			return p.Sec < b.Sec
		}
	} else {
		return p.Week < b.Week
	}
}

func (p *GTime) Before(t time.Time, roundSec bool) bool {
	return p.Less(*NewGTime(t), roundSec)
}

func (p *GTime) After(t time.Time, roundSec bool) bool {
	return NewGTime(t).Less(*p, roundSec)
}
