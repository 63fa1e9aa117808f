// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnssdop

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holding the counters of this package
var MetricsRegistry = prometheus.NewRegistry()

var (
	statesPropagated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gnssdop_propagated_states_total",
		Help: "Total number of satellite states computed from broadcast ephemeris.",
	})

	keplerWarnings = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gnssdop_kepler_warnings_total",
		Help: "Total number of satellite states whose eccentric anomaly did not meet the tolerance.",
	})

	dopEpochs = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gnssdop_dop_epochs_total",
		Help: "Total number of epochs for which DOP was calculated.",
	})

	dopSingular = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gnssdop_dop_singular_epochs_total",
		Help: "Total number of epochs whose geometry gave NaN DOP (too few satellites or singular).",
	})

	visibleSats = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gnssdop_visible_satellites",
		Help:    "Number of satellites above the elevation mask per visibility query.",
		Buckets: prometheus.LinearBuckets(0, 4, 10),
	})
)

func init() {
	MetricsRegistry.MustRegister(statesPropagated)
	MetricsRegistry.MustRegister(keplerWarnings)
	MetricsRegistry.MustRegister(dopEpochs)
	MetricsRegistry.MustRegister(dopSingular)
	MetricsRegistry.MustRegister(visibleSats)
}

// Write the counters to a file in the node exporter textfile format (for batch runs)
func WriteMetrics(path string) error {
	return prometheus.WriteToTextfile(path, MetricsRegistry)
}
