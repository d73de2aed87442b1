package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/mewayz/workspacebilling/internal/clock"
	obslogger "github.com/mewayz/workspacebilling/internal/observability/logger"
	obsmetrics "github.com/mewayz/workspacebilling/internal/observability/metrics"
	warningdomain "github.com/mewayz/workspacebilling/internal/usagewarning/domain"
	"github.com/mewayz/workspacebilling/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Guard   *db.Guard
	Repo    warningdomain.Repository
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID   *snowflake.Node
	clock   clock.Clock
	guard   *db.Guard
	repo    warningdomain.Repository
	metrics *obsmetrics.Metrics
}

func NewService(p ServiceParam) warningdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("usagewarning.service"),

		genID:   p.GenID,
		clock:   p.Clock,
		guard:   p.Guard,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) Evaluate(ctx context.Context, tx *gorm.DB, in warningdomain.EvaluateInput) (*warningdomain.WarningResponse, error) {
	threshold, severity, pct, crossed := warningdomain.Classify(in.CurrentUsage, in.Limit)
	if !crossed {
		return nil, nil
	}

	warning := &warningdomain.Warning{
		ID:           s.genID.Generate(),
		WorkspaceID:  in.WorkspaceID,
		Feature:      in.Feature,
		Threshold:    threshold,
		Severity:     severity,
		CurrentUsage: in.CurrentUsage,
		UsageLimit:   in.Limit,
		Percentage:   pct,
		CreatedAt:    s.clock.Now(),
	}
	inserted, err := s.repo.InsertIfAbsent(ctx, tx, warning)
	if err != nil {
		return nil, fmt.Errorf("insert usage warning: %w", err)
	}
	if !inserted {
		return nil, nil
	}

	s.metrics.RecordWarningCreated(ctx, in.Feature, string(severity))
	obslogger.WithContext(ctx, s.log).Info("usage warning created",
		zap.String("workspace_id", in.WorkspaceID),
		zap.String("feature", in.Feature),
		zap.Int("threshold", threshold),
		zap.Float64("percentage", pct),
	)
	resp := warning.Response()
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req warningdomain.ListRequest) ([]warningdomain.WarningResponse, error) {
	workspaceID := strings.TrimSpace(req.WorkspaceID)
	if workspaceID == "" {
		return nil, warningdomain.ErrInvalidWorkspace
	}

	var rows []warningdomain.Warning
	err := s.guard.Do(ctx, "usagewarning.list", func(ctx context.Context) error {
		var err error
		rows, err = s.repo.List(ctx, s.db, workspaceID, req.IncludeResolved)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]warningdomain.WarningResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Response())
	}
	return out, nil
}

// Resolve is idempotent: resolving a resolved warning returns it unchanged.
func (s *Service) Resolve(ctx context.Context, req warningdomain.ResolveRequest) (warningdomain.WarningResponse, error) {
	workspaceID := strings.TrimSpace(req.WorkspaceID)
	if workspaceID == "" {
		return warningdomain.WarningResponse{}, warningdomain.ErrInvalidWorkspace
	}
	actorID := strings.TrimSpace(req.ActorID)
	if actorID == "" {
		return warningdomain.WarningResponse{}, warningdomain.ErrInvalidActor
	}
	warningID, err := snowflake.ParseString(strings.TrimSpace(req.WarningID))
	if err != nil || warningID == 0 {
		return warningdomain.WarningResponse{}, warningdomain.ErrInvalidWarning
	}

	var warning *warningdomain.Warning
	err = s.guard.Do(ctx, "usagewarning.resolve", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			warning, err = s.repo.FindByID(ctx, tx, workspaceID, warningID.Int64())
			if err != nil {
				return err
			}
			if warning == nil {
				return warningdomain.ErrWarningNotFound
			}
			if warning.Resolved {
				return nil
			}
			now := s.clock.Now()
			warning.Resolved = true
			warning.ResolvedAt = &now
			warning.ResolvedBy = &actorID
			return s.repo.MarkResolved(ctx, tx, warning)
		})
	})
	if err != nil {
		return warningdomain.WarningResponse{}, err
	}
	return warning.Response(), nil
}
