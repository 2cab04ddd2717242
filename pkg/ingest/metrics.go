// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	filesParsedTotal  prometheus.Counter
	filesSkippedTotal *prometheus.CounterVec
	parseErrorsTotal  prometheus.Counter
	unitsLoadedTotal  prometheus.Counter
	callEdgesTotal    prometheus.Counter
	pointsIndexed     prometheus.Counter
	runDuration       prometheus.Histogram
)

// initMetrics registers ingestion metrics exactly once; repeated driver
// construction in one process must not panic on double registration.
func initMetrics() {
	metricsOnce.Do(func() {
		filesParsedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codegraph_ingest_files_parsed_total",
			Help: "Source files parsed across all runs.",
		})
		filesSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codegraph_ingest_files_skipped_total",
			Help: "Source files skipped, by reason.",
		}, []string{"reason"})
		parseErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codegraph_ingest_parse_errors_total",
			Help: "Recoverable parse errors across all runs.",
		})
		unitsLoadedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codegraph_ingest_units_loaded_total",
			Help: "Code units written to the graph.",
		})
		callEdgesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codegraph_ingest_call_edges_total",
			Help: "Resolved CALLS edges written to the graph.",
		})
		pointsIndexed = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codegraph_ingest_points_indexed_total",
			Help: "Points written to the vector store.",
		})
		runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "codegraph_ingest_run_duration_seconds",
			Help:    "Wall-clock duration of ingestion runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		})
		prometheus.MustRegister(
			filesParsedTotal, filesSkippedTotal, parseErrorsTotal,
			unitsLoadedTotal, callEdgesTotal, pointsIndexed, runDuration,
		)
	})
}

// recordRun publishes one summary to the metrics.
func recordRun(s *Summary, elapsed time.Duration) {
	initMetrics()
	filesParsedTotal.Add(float64(s.FilesParsed))
	for reason, n := range s.SkipReasons {
		filesSkippedTotal.WithLabelValues(reason).Add(float64(n))
	}
	parseErrorsTotal.Add(float64(s.ParseErrors))
	unitsLoadedTotal.Add(float64(s.Units))
	callEdgesTotal.Add(float64(s.CallEdges))
	pointsIndexed.Add(float64(s.Indexed))
	runDuration.Observe(elapsed.Seconds())
}
