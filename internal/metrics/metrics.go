// Package metrics provides Prometheus metrics for versionstore
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nainya/versionstore/pkg/versioning"
)

// Metrics holds all Prometheus metrics for versionstore
type Metrics struct {
	// gRPC request metrics
	GrpcRequestsTotal    *prometheus.CounterVec
	GrpcRequestDuration  *prometheus.HistogramVec
	GrpcRequestsInFlight prometheus.Gauge

	// Store operation metrics
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec

	// Store contents
	DocumentsTotal prometheus.Gauge
	BranchesTotal  prometheus.Gauge
	VersionsTotal  prometheus.Gauge
	LocksHeld      prometheus.Gauge

	ServerStartTime time.Time
}

// NewMetrics creates all metrics and registers them on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		ServerStartTime: time.Now(),
	}

	m.GrpcRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "versionstore_grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "status"},
	)

	m.GrpcRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "versionstore_grpc_request_duration_seconds",
			Help:    "Duration of gRPC requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	m.GrpcRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "versionstore_grpc_requests_in_flight",
			Help: "Number of gRPC requests currently being processed",
		},
	)

	m.StoreOperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "versionstore_store_operations_total",
			Help: "Total number of version store operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	m.StoreOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "versionstore_store_operation_duration_seconds",
			Help:    "Duration of version store operations in seconds",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
		},
		[]string{"operation"},
	)

	m.DocumentsTotal = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "versionstore_documents_total",
			Help: "Number of documents under version control",
		},
	)

	m.BranchesTotal = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "versionstore_branches_total",
			Help: "Number of branches across all documents",
		},
	)

	m.VersionsTotal = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "versionstore_versions_total",
			Help: "Number of version records across all branches",
		},
	)

	m.LocksHeld = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "versionstore_locks_held",
			Help: "Number of documents currently locked",
		},
	)

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "versionstore_server_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.ServerStartTime).Seconds() },
	)

	return m
}

// RecordGrpcRequest records a gRPC request with its status
func (m *Metrics) RecordGrpcRequest(method string, status string, duration time.Duration) {
	m.GrpcRequestsTotal.WithLabelValues(method, status).Inc()
	m.GrpcRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordStoreOperation records a store call labelled by its outcome
func (m *Metrics) RecordStoreOperation(operation string, err error, duration time.Duration) {
	m.StoreOperationsTotal.WithLabelValues(operation, versioning.OutcomeOf(err).String()).Inc()
	m.StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateStoreStats mirrors store contents into gauges
func (m *Metrics) UpdateStoreStats(st versioning.Stats) {
	m.DocumentsTotal.Set(float64(st.Documents))
	m.BranchesTotal.Set(float64(st.Branches))
	m.VersionsTotal.Set(float64(st.Versions))
	m.LocksHeld.Set(float64(st.Locks))
}
