package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("feature", "instagram_searches"),
		attribute.String("workspace_id", "ws_123"),
		attribute.String("severity", "critical"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "workspace_id" {
			t.Fatalf("workspace_id must not be used as a metric label")
		}
	}
}

func TestMetricsRecordersToleratesNilAndNoop(t *testing.T) {
	var nilMetrics *Metrics
	nilMetrics.RecordUsageTracked(context.Background(), "bio_links", 1)
	nilMetrics.RecordLimitExceeded(context.Background(), "bio_links")

	m, err := New(Config{ServiceName: "test"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordUsageTracked(context.Background(), "bio_links", 3)
	m.RecordWarningCreated(context.Background(), "bio_links", "warning")
	m.RecordSubscriptionEvent(context.Background(), "created", "monthly")
}
