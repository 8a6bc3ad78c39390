/*
Copyright © 2026 the gridcompare authors.
This file is part of gridcompare.

gridcompare is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gridcompare is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gridcompare.  If not, see <http://www.gnu.org/licenses/>.*/

package gridcompare

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "gridcompare"

// Metrics holds the Prometheus collectors of a Comparer.
type Metrics struct {
	// Variables counts compared variables; labels: variable, outcome
	// (ok or a failure kind).
	Variables *prometheus.CounterVec

	// StageDuration observes per-variable stage durations; labels: stage
	// (decode, align, mask, aggregate, render, store).
	StageDuration *prometheus.HistogramVec

	// CacheRequests reports the requests received by each cache level;
	// labels: level (dedupe, memory, compute).
	CacheRequests *prometheus.GaugeVec

	// Requests counts Compare calls.
	Requests prometheus.Counter
}

// NewMetrics creates the comparison metrics and registers them with reg.
// If reg is nil, the default Prometheus registry is used.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Variables: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "variables_total",
			Help:      "Compared variables by outcome.",
		}, []string{"variable", "outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each comparison stage for one variable.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"stage"}),
		CacheRequests: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "cache_requests",
			Help:      "Requests received by each level of the grid and mask cache.",
		}, []string{"level"}),
		Requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Total comparison requests.",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.Variables, m.StageDuration, m.CacheRequests, m.Requests)
	return m
}

func (m *Metrics) observeStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) countVariable(variable, outcome string) {
	if m == nil {
		return
	}
	m.Variables.WithLabelValues(variable, outcome).Inc()
}

func (m *Metrics) setCacheRequests(r []int) {
	if m == nil || len(r) != len(cacheLevels) {
		return
	}
	for i, l := range cacheLevels {
		m.CacheRequests.WithLabelValues(l).Set(float64(r[i]))
	}
}
