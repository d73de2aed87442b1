package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mewayz/workspacebilling/internal/bundle/catalog"
	bundledomain "github.com/mewayz/workspacebilling/internal/bundle/domain"
	"github.com/mewayz/workspacebilling/internal/clock"
	obslogger "github.com/mewayz/workspacebilling/internal/observability/logger"
	obsmetrics "github.com/mewayz/workspacebilling/internal/observability/metrics"
	subscriptiondomain "github.com/mewayz/workspacebilling/internal/subscription/domain"
	usagedomain "github.com/mewayz/workspacebilling/internal/usage/domain"
	warningdomain "github.com/mewayz/workspacebilling/internal/usagewarning/domain"
	"github.com/mewayz/workspacebilling/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxIdempotencyKeyLength = 255

var errDuplicateEvent = errors.New("usage event already recorded")

type ServiceParam struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Guard           *db.Guard
	Repo            usagedomain.Repository
	Catalog         *catalog.Catalog
	SubscriptionSvc subscriptiondomain.Service
	WarningSvc      warningdomain.Service
	Metrics         *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID           *snowflake.Node
	clock           clock.Clock
	guard           *db.Guard
	repo            usagedomain.Repository
	catalog         *catalog.Catalog
	subscriptionsvc subscriptiondomain.Service
	warningsvc      warningdomain.Service
	metrics         *obsmetrics.Metrics
}

func NewService(p ServiceParam) usagedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("usage.service"),

		genID:           p.GenID,
		clock:           p.Clock,
		guard:           p.Guard,
		repo:            p.Repo,
		catalog:         p.Catalog,
		subscriptionsvc: p.SubscriptionSvc,
		warningsvc:      p.WarningSvc,
		metrics:         p.Metrics,
	}
}

func (s *Service) TrackUsage(ctx context.Context, req usagedomain.TrackUsageRequest) (usagedomain.TrackUsageResponse, error) {
	workspaceID := strings.TrimSpace(req.WorkspaceID)
	if workspaceID == "" {
		return usagedomain.TrackUsageResponse{}, usagedomain.ErrInvalidWorkspace
	}
	actorID := strings.TrimSpace(req.ActorID)
	if actorID == "" {
		return usagedomain.TrackUsageResponse{}, usagedomain.ErrInvalidActor
	}
	rule, err := s.resolveRule(req.Feature)
	if err != nil {
		return usagedomain.TrackUsageResponse{}, err
	}
	amount := int64(1)
	if req.Amount != nil {
		amount = *req.Amount
	}
	if amount <= 0 {
		return usagedomain.TrackUsageResponse{}, usagedomain.ErrInvalidAmount
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if len(key) > maxIdempotencyKeyLength {
		return usagedomain.TrackUsageResponse{}, usagedomain.ErrInvalidIdempotencyKey
	}

	// Replays never re-evaluate limits.
	if key != "" {
		existing, err := s.findByKey(ctx, workspaceID, key)
		if err != nil {
			return usagedomain.TrackUsageResponse{}, err
		}
		if existing != nil {
			return replay(existing), nil
		}
	}

	limit, err := s.resolveLimit(ctx, workspaceID, rule)
	if err != nil {
		return usagedomain.TrackUsageResponse{}, err
	}

	now := s.clock.Now()
	agg := &usagedomain.UsageAggregate{
		WorkspaceID: workspaceID,
		Feature:     rule.Feature,
		PeriodStart: usagedomain.PeriodStart(now, rule.ResetPolicy),
		UpdatedAt:   now,
	}
	event := &usagedomain.UsageEvent{
		ID:          s.genID.Generate(),
		WorkspaceID: workspaceID,
		Feature:     rule.Feature,
		LimitKey:    rule.LimitKey,
		Amount:      amount,
		UserID:      actorID,
		PeriodStart: agg.PeriodStart,
		UsageLimit:  limit,
		CreatedAt:   now,
	}
	if key != "" {
		event.IdempotencyKey = &key
	}
	if len(req.Metadata) > 0 {
		event.Metadata = datatypes.JSONMap(req.Metadata)
	}

	var warning *warningdomain.WarningResponse
	err = s.guard.Do(ctx, "usage.track", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.repo.EnsureAggregate(ctx, tx, agg); err != nil {
				return fmt.Errorf("ensure usage aggregate: %w", err)
			}
			incremented, err := s.repo.Increment(ctx, tx, agg, amount, limit)
			if err != nil {
				return fmt.Errorf("increment usage aggregate: %w", err)
			}
			current, err := s.repo.Total(ctx, tx, workspaceID, rule.Feature, agg.PeriodStart)
			if err != nil {
				return err
			}
			if !incremented && limit == bundledomain.Unlimited {
				return fmt.Errorf("%w: counter overflow", usagedomain.ErrInvalidAmount)
			}
			if !incremented {
				return &usagedomain.LimitExceededError{
					Feature:   rule.Feature,
					Current:   current,
					Limit:     limit,
					Remaining: usagedomain.Remaining(current, limit),
					Requested: amount,
				}
			}

			event.UsageAfter = current
			if err := s.repo.InsertEvent(ctx, tx, event); err != nil {
				if key != "" && db.IsDuplicateKeyErr(err) {
					return errDuplicateEvent
				}
				return fmt.Errorf("insert usage event: %w", err)
			}

			if limit == bundledomain.Unlimited {
				return nil
			}
			warning, err = s.warningsvc.Evaluate(ctx, tx, warningdomain.EvaluateInput{
				WorkspaceID:  workspaceID,
				Feature:      rule.Feature,
				CurrentUsage: current,
				Limit:        limit,
			})
			return err
		})
	})

	var exceeded *usagedomain.LimitExceededError
	switch {
	case errors.As(err, &exceeded):
		s.metrics.RecordLimitExceeded(ctx, rule.Feature)
		obslogger.WithContext(ctx, s.log).Info("usage limit exceeded",
			zap.String("workspace_id", workspaceID),
			zap.String("feature", rule.Feature),
			zap.Int64("current", exceeded.Current),
			zap.Int64("limit", exceeded.Limit),
			zap.Int64("requested", amount),
		)
		return usagedomain.TrackUsageResponse{}, err
	case errors.Is(err, errDuplicateEvent):
		// A concurrent request with the same key won the insert.
		existing, err := s.findByKey(ctx, workspaceID, key)
		if err != nil {
			return usagedomain.TrackUsageResponse{}, err
		}
		if existing == nil {
			return usagedomain.TrackUsageResponse{}, fmt.Errorf("usage event %q vanished after duplicate insert", key)
		}
		return replay(existing), nil
	case err != nil:
		return usagedomain.TrackUsageResponse{}, err
	}

	s.metrics.RecordUsageTracked(ctx, rule.Feature, amount)
	resp := response(event)
	resp.Warning = warning
	return resp, nil
}

func (s *Service) CheckUsageLimit(ctx context.Context, req usagedomain.CheckUsageRequest) (usagedomain.CheckUsageResponse, error) {
	workspaceID := strings.TrimSpace(req.WorkspaceID)
	if workspaceID == "" {
		return usagedomain.CheckUsageResponse{}, usagedomain.ErrInvalidWorkspace
	}
	rule, err := s.resolveRule(req.Feature)
	if err != nil {
		return usagedomain.CheckUsageResponse{}, err
	}
	amount := req.Amount
	if amount == 0 {
		amount = 1
	}
	if amount < 0 {
		return usagedomain.CheckUsageResponse{}, usagedomain.ErrInvalidAmount
	}

	limit, err := s.resolveLimit(ctx, workspaceID, rule)
	if err != nil {
		return usagedomain.CheckUsageResponse{}, err
	}
	periodStart := usagedomain.PeriodStart(s.clock.Now(), rule.ResetPolicy)

	var current int64
	err = s.guard.Do(ctx, "usage.check", func(ctx context.Context) error {
		var err error
		current, err = s.repo.Total(ctx, s.db, workspaceID, rule.Feature, periodStart)
		return err
	})
	if err != nil {
		return usagedomain.CheckUsageResponse{}, err
	}

	unlimited := limit == bundledomain.Unlimited
	wouldBe := int64(math.MaxInt64)
	if amount <= math.MaxInt64-current {
		wouldBe = current + amount
	}
	return usagedomain.CheckUsageResponse{
		WorkspaceID:  workspaceID,
		Feature:      rule.Feature,
		LimitKey:     rule.LimitKey,
		Allowed:      unlimited || amount <= limit-current,
		CurrentUsage: current,
		Limit:        limit,
		Remaining:    usagedomain.Remaining(current, limit),
		WouldBeTotal: wouldBe,
		Unlimited:    unlimited,
		PeriodStart:  periodStart,
	}, nil
}

func (s *Service) GetUsageLimits(ctx context.Context, workspaceID string) (usagedomain.UsageLimitsResponse, error) {
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return usagedomain.UsageLimitsResponse{}, usagedomain.ErrInvalidWorkspace
	}

	snapshot, err := s.subscriptionsvc.Snapshot(ctx, workspaceID)
	if err != nil {
		return usagedomain.UsageLimitsResponse{}, err
	}

	now := s.clock.Now()
	rules := s.catalog.Rules()
	periods := make([]time.Time, 0, 4)
	seen := make(map[time.Time]struct{}, 4)
	for _, rule := range rules {
		start := usagedomain.PeriodStart(now, rule.ResetPolicy)
		if _, ok := seen[start]; ok {
			continue
		}
		seen[start] = struct{}{}
		periods = append(periods, start)
	}

	var aggregates []usagedomain.UsageAggregate
	err = s.guard.Do(ctx, "usage.limits", func(ctx context.Context) error {
		var err error
		aggregates, err = s.repo.ListAggregates(ctx, s.db, workspaceID, periods)
		return err
	})
	if err != nil {
		return usagedomain.UsageLimitsResponse{}, err
	}

	type counterKey struct {
		feature string
		period  int64
	}
	totals := make(map[counterKey]int64, len(aggregates))
	for _, agg := range aggregates {
		totals[counterKey{agg.Feature, agg.PeriodStart.UTC().Unix()}] = agg.Total
	}

	features := make([]usagedomain.FeatureUsage, 0, len(rules))
	for _, rule := range rules {
		start := usagedomain.PeriodStart(now, rule.ResetPolicy)
		limit := s.catalog.CombinedLimit(snapshot.Bundles, rule.LimitKey)
		current := totals[counterKey{rule.Feature, start.Unix()}]
		features = append(features, usagedomain.FeatureUsage{
			Feature:      rule.Feature,
			LimitKey:     rule.LimitKey,
			ResetPolicy:  rule.ResetPolicy,
			Limit:        limit,
			CurrentUsage: current,
			Remaining:    usagedomain.Remaining(current, limit),
			Percentage:   percentage(current, limit),
			Unlimited:    limit == bundledomain.Unlimited,
			PeriodStart:  start,
		})
	}

	bundles := snapshot.Bundles
	if bundles == nil {
		bundles = []bundledomain.BundleID{}
	}
	return usagedomain.UsageLimitsResponse{
		WorkspaceID: workspaceID,
		Bundles:     bundles,
		Features:    features,
	}, nil
}

func (s *Service) resolveRule(feature string) (bundledomain.FeatureRule, error) {
	feature = strings.TrimSpace(feature)
	if feature == "" {
		return bundledomain.FeatureRule{}, usagedomain.ErrInvalidFeature
	}
	return s.catalog.Rule(feature)
}

// resolveLimit combines the limit over the live bundles, or the free tier without any.
func (s *Service) resolveLimit(ctx context.Context, workspaceID string, rule bundledomain.FeatureRule) (int64, error) {
	snapshot, err := s.subscriptionsvc.Snapshot(ctx, workspaceID)
	if err != nil {
		return 0, err
	}
	return s.catalog.CombinedLimit(snapshot.Bundles, rule.LimitKey), nil
}

func (s *Service) findByKey(ctx context.Context, workspaceID, key string) (*usagedomain.UsageEvent, error) {
	var event *usagedomain.UsageEvent
	err := s.guard.Do(ctx, "usage.find_by_key", func(ctx context.Context) error {
		var err error
		event, err = s.repo.FindEventByKey(ctx, s.db, workspaceID, key)
		return err
	})
	return event, err
}

func replay(event *usagedomain.UsageEvent) usagedomain.TrackUsageResponse {
	resp := response(event)
	resp.Replayed = true
	return resp
}

func response(event *usagedomain.UsageEvent) usagedomain.TrackUsageResponse {
	return usagedomain.TrackUsageResponse{
		EventID:      event.ID.String(),
		WorkspaceID:  event.WorkspaceID,
		Feature:      event.Feature,
		LimitKey:     event.LimitKey,
		Amount:       event.Amount,
		CurrentUsage: event.UsageAfter,
		Limit:        event.UsageLimit,
		Remaining:    usagedomain.Remaining(event.UsageAfter, event.UsageLimit),
		Percentage:   percentage(event.UsageAfter, event.UsageLimit),
		Unlimited:    event.UsageLimit == bundledomain.Unlimited,
		PeriodStart:  event.PeriodStart.UTC(),
	}
}

func percentage(current, limit int64) float64 {
	if limit == bundledomain.Unlimited {
		return 0
	}
	return warningdomain.Percentage(current, limit)
}
