package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "customers_operations_total",
			Help: "Customer operations by name and outcome",
		},
		[]string{"op", "result"}, // list|create|get|... , ok|not_found|error
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "customers_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "code"},
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "customers_events_published_total",
			Help: "Lifecycle events handed to the publisher",
		},
		[]string{"type", "result"},
	)

	AuditRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "customers_audit_rows_total",
			Help: "Audit worker rows by outcome",
		},
		[]string{"result"}, // inserted|skipped|failed
	)
)

var once sync.Once

// MustRegister registers the collectors once; later calls are no-ops so both
// serve and worker commands can call it.
func MustRegister(r prometheus.Registerer) {
	once.Do(func() {
		r.MustRegister(
			OperationsTotal,
			HTTPRequestsTotal,
			EventsPublishedTotal,
			AuditRowsTotal,
		)
	})
}
