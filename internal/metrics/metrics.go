// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts handled HTTP requests by method, route and status.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rbeam_http_requests_total",
		Help: "Handled HTTP requests.",
	}, []string{"method", "path", "status"})

	// RequestDuration observes request latency by route.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rbeam_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	// ProfilesCreated counts successful registrations.
	ProfilesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rbeam_profiles_created_total",
		Help: "Successful registrations.",
	})

	// LoginsTotal counts successful logins.
	LoginsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rbeam_logins_total",
		Help: "Successful logins.",
	})

	// MailSent counts letters stored locally.
	MailSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rbeam_mail_sent_total",
		Help: "Letters stored.",
	})

	// TransactionsTotal counts committed coin movements.
	TransactionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rbeam_transactions_total",
		Help: "Committed coin transactions.",
	})

	// RemoteDeliveries counts remote mail deliveries by outcome.
	RemoteDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rbeam_remote_deliveries_total",
		Help: "Remote mail deliveries.",
	}, []string{"outcome"})
)

// Handler serves the scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
