package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	StorageReasonDeadlineExceeded     = "deadline_exceeded"
	StorageReasonCanceled             = "canceled"
	StorageReasonLockTimeout          = "db_lock_timeout"
	StorageReasonSerializationFailure = "serialization_failure"
	StorageReasonUniqueViolation      = "unique_violation"
	StorageReasonConnection           = "connection"
	StorageReasonUnknown              = "unknown"
)

// StorageMetrics tracks per-operation storage latency and failures.
type StorageMetrics struct {
	callDuration *prometheus.HistogramVec
	callErrors   *prometheus.CounterVec
	lockWait     *prometheus.HistogramVec
}

var (
	storageMetricsOnce sync.Once
	storageMetrics     *StorageMetrics
)

// Storage returns the process-wide storage metrics registered on the default registerer.
func Storage() *StorageMetrics {
	return StorageWithConfig(Config{})
}

// StorageWithConfig returns the process-wide storage metrics using config labels.
func StorageWithConfig(cfg Config) *StorageMetrics {
	storageMetricsOnce.Do(func() {
		storageMetrics = newStorageMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return storageMetrics
}

func newStorageMetrics(registerer prometheus.Registerer, cfg Config) *StorageMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "workspacebilling"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	callDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "workspacebilling_storage_call_duration_seconds",
		Help:        "Latency of bounded storage calls by operation.",
		Buckets:     []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	}, []string{"operation"})
	callErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "workspacebilling_storage_call_errors_total",
		Help:        "Failed storage calls by operation and low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"operation", "reason"})
	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "workspacebilling_workspace_lock_wait_seconds",
		Help:        "Time spent acquiring the per-workspace mutation lock.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		ConstLabels: constLabels,
	}, []string{"resource"})

	registerer.MustRegister(callDuration, callErrors, lockWait)

	return &StorageMetrics{
		callDuration: callDuration,
		callErrors:   callErrors,
		lockWait:     lockWait,
	}
}

// ObserveStorageCall records one storage call outcome.
func (m *StorageMetrics) ObserveStorageCall(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.callDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.callErrors.WithLabelValues(operation, ClassifyStorageReason(err)).Inc()
	}
}

// ObserveLockWait records how long a workspace lock took to acquire.
func (m *StorageMetrics) ObserveLockWait(resource string, duration time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(resource).Observe(duration.Seconds())
}

// ClassifyStorageReason maps storage errors to low-cardinality reasons.
func ClassifyStorageReason(err error) string {
	if err == nil {
		return StorageReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return StorageReasonDeadlineExceeded
	}
	if errors.Is(err, context.Canceled) {
		return StorageReasonCanceled
	}
	if hasPGCode(err, "55P03") {
		return StorageReasonLockTimeout
	}
	if hasPGCode(err, "40001") {
		return StorageReasonSerializationFailure
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505") {
		return StorageReasonUniqueViolation
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || errors.Is(err, gorm.ErrInvalidDB) {
		return StorageReasonConnection
	}
	return StorageReasonUnknown
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
