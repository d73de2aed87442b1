package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mewayz/workspacebilling/internal/clock"
	warningdomain "github.com/mewayz/workspacebilling/internal/usagewarning/domain"
	"github.com/mewayz/workspacebilling/internal/usagewarning/repository"
	"github.com/mewayz/workspacebilling/pkg/db"
	"github.com/mewayz/workspacebilling/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupWarningService(t *testing.T) (warningdomain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()
	conn := dbtest.Open(t, &warningdomain.Warning{})
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC))

	svc := NewService(ServiceParam{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Guard: db.NewGuard(time.Second, nil),
		Repo:  repository.Provide(),
	})
	return svc, conn, fake
}

func evaluate(t *testing.T, svc warningdomain.Service, conn *gorm.DB, current, limit int64) *warningdomain.WarningResponse {
	t.Helper()
	warning, err := svc.Evaluate(context.Background(), conn, warningdomain.EvaluateInput{
		WorkspaceID:  "ws-1",
		Feature:      "instagram_searches",
		CurrentUsage: current,
		Limit:        limit,
	})
	require.NoError(t, err)
	return warning
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		current   int64
		limit     int64
		threshold int
		severity  warningdomain.Severity
		pct       float64
		crossed   bool
	}{
		{name: "below", current: 600, limit: 1000, pct: 60},
		{name: "warning at 80", current: 800, limit: 1000, threshold: 80, severity: warningdomain.SeverityWarning, pct: 80, crossed: true},
		{name: "just under critical", current: 949, limit: 1000, threshold: 80, severity: warningdomain.SeverityWarning, pct: 94.9, crossed: true},
		{name: "critical", current: 950, limit: 1000, threshold: 95, severity: warningdomain.SeverityCritical, pct: 95, crossed: true},
		{name: "full", current: 3, limit: 3, threshold: 95, severity: warningdomain.SeverityCritical, pct: 100, crossed: true},
		{name: "rounded", current: 2, limit: 3, pct: 66.67},
		{name: "zero limit", current: 5, limit: 0},
		{name: "unlimited", current: 5, limit: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			threshold, severity, pct, crossed := warningdomain.Classify(tt.current, tt.limit)
			assert.Equal(t, tt.crossed, crossed)
			assert.Equal(t, tt.threshold, threshold)
			assert.Equal(t, tt.severity, severity)
			assert.Equal(t, tt.pct, pct)
		})
	}
}

func TestEvaluateDeduplicatesOpenWarnings(t *testing.T) {
	svc, conn, _ := setupWarningService(t)

	assert.Nil(t, evaluate(t, svc, conn, 600, 1000))

	first := evaluate(t, svc, conn, 850, 1000)
	require.NotNil(t, first)
	assert.Equal(t, 80, first.Threshold)
	assert.Equal(t, warningdomain.SeverityWarning, first.Severity)

	assert.Nil(t, evaluate(t, svc, conn, 900, 1000))

	critical := evaluate(t, svc, conn, 950, 1000)
	require.NotNil(t, critical)
	assert.Equal(t, 95, critical.Threshold)
	assert.Equal(t, warningdomain.SeverityCritical, critical.Severity)
	assert.Equal(t, 95.0, critical.Percentage)

	assert.Nil(t, evaluate(t, svc, conn, 990, 1000))

	var count int64
	require.NoError(t, conn.Model(&warningdomain.Warning{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestEvaluateSkipsUnlimited(t *testing.T) {
	svc, conn, _ := setupWarningService(t)
	assert.Nil(t, evaluate(t, svc, conn, 1_000_000, -1))
	assert.Nil(t, evaluate(t, svc, conn, 10, 0))
}

func TestResolveAndList(t *testing.T) {
	svc, conn, fake := setupWarningService(t)
	ctx := context.Background()

	warning := evaluate(t, svc, conn, 800, 1000)
	require.NotNil(t, warning)

	open, err := svc.List(ctx, warningdomain.ListRequest{WorkspaceID: "ws-1"})
	require.NoError(t, err)
	require.Len(t, open, 1)

	fake.Advance(time.Minute)
	resolved, err := svc.Resolve(ctx, warningdomain.ResolveRequest{WorkspaceID: "ws-1", WarningID: warning.ID, ActorID: "admin-1"})
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	require.NotNil(t, resolved.ResolvedAt)
	resolvedAt := *resolved.ResolvedAt

	again, err := svc.Resolve(ctx, warningdomain.ResolveRequest{WorkspaceID: "ws-1", WarningID: warning.ID, ActorID: "owner-1"})
	require.NoError(t, err)
	require.NotNil(t, again.ResolvedAt)
	assert.True(t, resolvedAt.Equal(*again.ResolvedAt))
	require.NotNil(t, again.ResolvedBy)
	assert.Equal(t, "admin-1", *again.ResolvedBy)

	open, err = svc.List(ctx, warningdomain.ListRequest{WorkspaceID: "ws-1"})
	require.NoError(t, err)
	assert.Empty(t, open)

	fake.Advance(time.Minute)
	reopened := evaluate(t, svc, conn, 810, 1000)
	require.NotNil(t, reopened)
	assert.NotEqual(t, warning.ID, reopened.ID)

	all, err := svc.List(ctx, warningdomain.ListRequest{WorkspaceID: "ws-1", IncludeResolved: true})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, reopened.ID, all[0].ID)
	assert.True(t, all[1].Resolved)
}

func TestResolveErrors(t *testing.T) {
	svc, conn, _ := setupWarningService(t)
	ctx := context.Background()
	warning := evaluate(t, svc, conn, 800, 1000)
	require.NotNil(t, warning)

	_, err := svc.Resolve(ctx, warningdomain.ResolveRequest{WorkspaceID: "ws-2", WarningID: warning.ID, ActorID: "owner-1"})
	assert.ErrorIs(t, err, warningdomain.ErrWarningNotFound)

	_, err = svc.Resolve(ctx, warningdomain.ResolveRequest{WorkspaceID: "ws-1", WarningID: "nope", ActorID: "owner-1"})
	assert.ErrorIs(t, err, warningdomain.ErrInvalidWarning)

	_, err = svc.Resolve(ctx, warningdomain.ResolveRequest{WorkspaceID: "ws-1", WarningID: warning.ID})
	assert.ErrorIs(t, err, warningdomain.ErrInvalidActor)

	_, err = svc.List(ctx, warningdomain.ListRequest{})
	assert.ErrorIs(t, err, warningdomain.ErrInvalidWorkspace)
}
