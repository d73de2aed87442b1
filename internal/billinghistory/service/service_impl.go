package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	historydomain "github.com/mewayz/workspacebilling/internal/billinghistory/domain"
	"github.com/mewayz/workspacebilling/internal/clock"
	"github.com/mewayz/workspacebilling/pkg/db"
	"github.com/xuri/excelize/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const exportSheet = "Billing History"

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Guard *db.Guard
	Repo  historydomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	guard *db.Guard
	repo  historydomain.Repository
}

func NewService(p ServiceParam) historydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("billinghistory.service"),
		genID: p.GenID,
		clock: p.Clock,
		guard: p.Guard,
		repo:  p.Repo,
	}
}

func (s *Service) Append(ctx context.Context, tx *gorm.DB, entry *historydomain.Entry) error {
	if entry == nil || strings.TrimSpace(entry.WorkspaceID) == "" || entry.Type == "" {
		return historydomain.ErrInvalidEntry
	}
	if entry.ID == 0 {
		entry.ID = s.genID.Generate()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock.Now()
	}
	if err := s.repo.Insert(ctx, tx, entry); err != nil {
		return fmt.Errorf("append billing history: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, req historydomain.ListRequest) (historydomain.ListResponse, error) {
	workspaceID := strings.TrimSpace(req.WorkspaceID)
	if workspaceID == "" {
		return historydomain.ListResponse{}, historydomain.ErrInvalidWorkspace
	}

	limit := req.Limit
	if limit == 0 {
		limit = historydomain.DefaultListLimit
	}
	if limit < 0 || limit > historydomain.MaxListLimit {
		return historydomain.ListResponse{}, historydomain.ErrInvalidLimit
	}
	if req.Offset < 0 {
		return historydomain.ListResponse{}, historydomain.ErrInvalidOffset
	}

	var (
		entries []historydomain.Entry
		total   int64
	)
	err := s.guard.Do(ctx, "billing_history.list", func(ctx context.Context) error {
		var err error
		if total, err = s.repo.Count(ctx, s.db, workspaceID); err != nil {
			return err
		}
		entries, err = s.repo.List(ctx, s.db, workspaceID, limit, req.Offset)
		return err
	})
	if err != nil {
		return historydomain.ListResponse{}, err
	}

	out := make([]historydomain.EntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Response())
	}

	return historydomain.ListResponse{
		Entries:    out,
		TotalCount: total,
		HasMore:    int64(req.Offset+len(entries)) < total,
		Limit:      limit,
		Offset:     req.Offset,
	}, nil
}

func (s *Service) Export(ctx context.Context, workspaceID string) ([]byte, error) {
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return nil, historydomain.ErrInvalidWorkspace
	}

	var entries []historydomain.Entry
	err := s.guard.Do(ctx, "billing_history.export", func(ctx context.Context) error {
		var err error
		entries, err = s.repo.List(ctx, s.db, workspaceID, 0, 0)
		return err
	})
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), exportSheet); err != nil {
		return nil, err
	}

	header := []any{
		"created_at", "type", "action", "amount", "amount_delta", "currency",
		"billing_cycle", "bundles_before", "bundles_after", "bundles_changed", "reason", "actor_id",
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write export header: %w", err)
	}

	for i, entry := range entries {
		view := entry.Response()
		action, reason := "", ""
		if view.Action != nil {
			action = string(*view.Action)
		}
		if view.Reason != nil {
			reason = *view.Reason
		}
		row := []any{
			view.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			string(view.Type),
			action,
			view.Amount,
			view.AmountDelta,
			view.Currency,
			view.BillingCycle,
			strings.Join(view.BundlesBefore, ", "),
			strings.Join(view.BundlesAfter, ", "),
			strings.Join(view.BundlesChanged, ", "),
			reason,
			view.ActorID,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write export row: %w", err)
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write export workbook: %w", err)
	}

	s.log.Debug("billing history exported", zap.String("workspace_id", workspaceID), zap.Int("rows", len(entries)))
	return buf.Bytes(), nil
}
