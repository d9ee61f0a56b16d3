// Package monitoring exposes prometheus instrumentation for job runs and
// connector traffic.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RefreshOutcomes counts per-account refresh results by status.
	RefreshOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncd_token_refresh_outcomes_total",
			Help: "Token refresh outcomes by status",
		},
		[]string{"status"},
	)

	// SyncPairs counts per-(tenant,account) sync results.
	SyncPairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncd_sync_pairs_total",
			Help: "Tenant/account sync results by outcome",
		},
		[]string{"outcome"},
	)

	// JobDuration observes whole-run durations per job kind.
	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "syncd_job_duration_seconds",
			Help:    "Duration of refresh and sync job runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"job"},
	)

	// ConnectorErrors counts typed connector failures per platform.
	ConnectorErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncd_connector_errors_total",
			Help: "Connector failures by platform and error kind",
		},
		[]string{"platform", "kind"},
	)
)

// Register installs all collectors on the default registry.
func Register() {
	prometheus.MustRegister(RefreshOutcomes, SyncPairs, JobDuration, ConnectorErrors)
}

// Handler serves the default registry; mounted on its own listener.
func Handler() http.Handler { return promhttp.Handler() }
