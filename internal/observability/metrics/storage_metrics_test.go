package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifyStorageReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: StorageReasonDeadlineExceeded},
		{name: "canceled", err: context.Canceled, want: StorageReasonCanceled},
		{name: "lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: StorageReasonLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: StorageReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: StorageReasonUniqueViolation},
		{name: "invalid_db", err: gorm.ErrInvalidDB, want: StorageReasonConnection},
		{name: "unknown", err: errors.New("boom"), want: StorageReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyStorageReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestObserveStorageCallCountsErrors(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newStorageMetrics(registry, Config{ServiceName: "workspacebilling", Environment: "test"})

	m.ObserveStorageCall("usage.track", 5*time.Millisecond, nil)
	m.ObserveStorageCall("usage.track", 3*time.Second, context.DeadlineExceeded)

	got := testutil.ToFloat64(m.callErrors.WithLabelValues("usage.track", StorageReasonDeadlineExceeded))
	if got != 1 {
		t.Fatalf("expected 1 deadline error, got %v", got)
	}
}
