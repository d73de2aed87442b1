package tracing

import (
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesKeepsAllowlist(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/workspaces/:id/usage"),
		attribute.String("usage.metadata", "secret"),
	)
	if len(attrs) != 1 || attrs[0].Key != "http.route" {
		t.Fatalf("unexpected attributes: %v", attrs)
	}
}

func TestSafeErrorTruncates(t *testing.T) {
	err := SafeError(errors.New("first line\nsecond line"))
	if err.Error() != "first line" {
		t.Fatalf("expected first line only, got %q", err.Error())
	}

	long := SafeError(errors.New(strings.Repeat("x", 400)))
	if len(long.Error()) != 256 {
		t.Fatalf("expected 256 chars, got %d", len(long.Error()))
	}

	if SafeError(nil) != nil {
		t.Fatalf("nil in, nil out")
	}
}

func TestSafeAttributesDropsEmptyStrings(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("workspace.id", ""),
		attribute.String("workspace.feature", "ai_content_generation"),
	)
	if len(attrs) != 1 || attrs[0].Key != "workspace.feature" {
		t.Fatalf("unexpected attributes: %v", attrs)
	}
}
