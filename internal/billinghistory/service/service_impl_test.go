package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	historydomain "github.com/mewayz/workspacebilling/internal/billinghistory/domain"
	"github.com/mewayz/workspacebilling/internal/billinghistory/repository"
	"github.com/mewayz/workspacebilling/internal/clock"
	"github.com/mewayz/workspacebilling/pkg/db"
	"github.com/mewayz/workspacebilling/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupHistoryService(t *testing.T) (historydomain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	conn := dbtest.Open(t, &historydomain.Entry{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

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

func appendEntries(t *testing.T, svc historydomain.Service, conn *gorm.DB, fake *clock.FakeClock, workspaceID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		fake.Advance(time.Minute)
		entry := &historydomain.Entry{
			WorkspaceID:    workspaceID,
			SubscriptionID: 42,
			Type:           historydomain.EntryTypeBundleModification,
			AmountCents:    int64(1000 + i),
			Currency:       "USD",
			BundlesBefore:  []string{"creator"},
			BundlesAfter:   []string{"creator", "ecommerce"},
			BundlesChanged: []string{"ecommerce"},
			BillingCycle:   "monthly",
			ActorID:        "user-1",
		}
		require.NoError(t, svc.Append(context.Background(), conn, entry))
	}
}

func TestListNewestFirstWithPaging(t *testing.T) {
	svc, conn, fake := setupHistoryService(t)
	appendEntries(t, svc, conn, fake, "ws-1", 5)
	appendEntries(t, svc, conn, fake, "ws-2", 2)

	page, err := svc.List(context.Background(), historydomain.ListRequest{WorkspaceID: "ws-1", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.TotalCount)
	assert.True(t, page.HasMore)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, 10.04, page.Entries[0].Amount)
	assert.Equal(t, 10.03, page.Entries[1].Amount)

	last, err := svc.List(context.Background(), historydomain.ListRequest{WorkspaceID: "ws-1", Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.False(t, last.HasMore)
	require.Len(t, last.Entries, 1)
	assert.Equal(t, 10.0, last.Entries[0].Amount)
}

func TestListDefaultsAndBounds(t *testing.T) {
	svc, _, _ := setupHistoryService(t)
	ctx := context.Background()

	page, err := svc.List(ctx, historydomain.ListRequest{WorkspaceID: "ws-empty"})
	require.NoError(t, err)
	assert.Equal(t, historydomain.DefaultListLimit, page.Limit)
	assert.Empty(t, page.Entries)
	assert.NotNil(t, page.Entries)
	assert.False(t, page.HasMore)

	_, err = svc.List(ctx, historydomain.ListRequest{WorkspaceID: "ws-1", Limit: 101})
	assert.ErrorIs(t, err, historydomain.ErrInvalidLimit)

	_, err = svc.List(ctx, historydomain.ListRequest{WorkspaceID: "ws-1", Offset: -1})
	assert.ErrorIs(t, err, historydomain.ErrInvalidOffset)

	_, err = svc.List(ctx, historydomain.ListRequest{})
	assert.ErrorIs(t, err, historydomain.ErrInvalidWorkspace)
}

func TestAppendRejectsIncompleteEntry(t *testing.T) {
	svc, conn, _ := setupHistoryService(t)
	err := svc.Append(context.Background(), conn, &historydomain.Entry{WorkspaceID: "ws-1"})
	assert.ErrorIs(t, err, historydomain.ErrInvalidEntry)
}

func TestExportWritesWorkbook(t *testing.T) {
	svc, conn, fake := setupHistoryService(t)
	appendEntries(t, svc, conn, fake, "ws-1", 3)

	data, err := svc.Export(context.Background(), "ws-1")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "created_at", rows[0][0])
	assert.Equal(t, "bundle_modification", rows[1][1])
	assert.Equal(t, "creator, ecommerce", rows[1][8])
}
