package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	historydomain "github.com/mewayz/workspacebilling/internal/billinghistory/domain"
	"github.com/mewayz/workspacebilling/internal/bundle/catalog"
	bundledomain "github.com/mewayz/workspacebilling/internal/bundle/domain"
	"github.com/mewayz/workspacebilling/internal/bundle/pricing"
	"github.com/mewayz/workspacebilling/internal/cache"
	"github.com/mewayz/workspacebilling/internal/clock"
	"github.com/mewayz/workspacebilling/internal/lock"
	obslogger "github.com/mewayz/workspacebilling/internal/observability/logger"
	obsmetrics "github.com/mewayz/workspacebilling/internal/observability/metrics"
	subscriptiondomain "github.com/mewayz/workspacebilling/internal/subscription/domain"
	"github.com/mewayz/workspacebilling/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxModifyAttempts = 3

var errVersionConflict = errors.New("subscription version conflict")

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Guard      *db.Guard
	Repo       subscriptiondomain.Repository
	Catalog    *catalog.Catalog
	Calculator *pricing.Calculator
	HistorySvc historydomain.Service
	Cache      cache.SubscriptionCache
	Locker     *lock.WorkspaceLocker `optional:"true"`
	Metrics    *obsmetrics.Metrics   `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	clock      clock.Clock
	guard      *db.Guard
	repo       subscriptiondomain.Repository
	catalog    *catalog.Catalog
	calculator *pricing.Calculator
	historysvc historydomain.Service
	cache      cache.SubscriptionCache
	locker     *lock.WorkspaceLocker
	metrics    *obsmetrics.Metrics
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	subscriptionCache := p.Cache
	if subscriptionCache == nil {
		subscriptionCache = cache.NoopSubscriptionCache{}
	}
	return &Service{
		db:  p.DB,
		log: p.Log.Named("subscription.service"),

		genID:      p.GenID,
		clock:      p.Clock,
		guard:      p.Guard,
		repo:       p.Repo,
		catalog:    p.Catalog,
		calculator: p.Calculator,
		historysvc: p.HistorySvc,
		cache:      subscriptionCache,
		locker:     p.Locker,
		metrics:    p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req subscriptiondomain.CreateSubscriptionRequest) (subscriptiondomain.SubscriptionResponse, error) {
	workspaceID, actorID, err := normalizeIdentity(req.WorkspaceID, req.ActorID)
	if err != nil {
		return subscriptiondomain.SubscriptionResponse{}, err
	}

	breakdown, err := s.calculator.Calculate(req.BundleIDs, req.BillingCycle)
	if err != nil {
		return subscriptiondomain.SubscriptionResponse{}, err
	}

	unlock, err := s.lockWorkspace(ctx, workspaceID)
	if err != nil {
		return subscriptiondomain.SubscriptionResponse{}, err
	}
	defer unlock()

	now := s.clock.Now()
	sub := &subscriptiondomain.Subscription{
		ID:                 s.genID.Generate(),
		WorkspaceID:        workspaceID,
		Bundles:            bundleStrings(breakdown.Bundles),
		BillingCycle:       breakdown.BillingCycle,
		Status:             subscriptiondomain.SubscriptionStatusActive,
		Pricing:            datatypes.NewJSONType(subscriptiondomain.SnapshotFromBreakdown(breakdown, now)),
		AutoRenew:          true,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   periodEnd(now, breakdown.BillingCycle),
		CreatedBy:          actorID,
		Version:            1,
		CreatedAt:          now,
		ModifiedAt:         now,
	}

	err = s.guard.Do(ctx, "subscription.create", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			existing, err := s.repo.FindLive(ctx, tx, workspaceID)
			if err != nil {
				return err
			}
			if existing != nil {
				return subscriptiondomain.ErrAlreadySubscribed
			}

			if err := s.repo.Insert(ctx, tx, sub); err != nil {
				if db.IsDuplicateKeyErr(err) {
					return subscriptiondomain.ErrAlreadySubscribed
				}
				return err
			}

			return s.historysvc.Append(ctx, tx, &historydomain.Entry{
				WorkspaceID:      workspaceID,
				SubscriptionID:   sub.ID,
				Type:             historydomain.EntryTypeSubscriptionCreated,
				AmountCents:      breakdown.TotalAmountCents,
				AmountDeltaCents: breakdown.TotalAmountCents,
				Currency:         breakdown.Currency,
				BundlesBefore:    []string{},
				BundlesAfter:     sub.Bundles,
				BundlesChanged:   sub.Bundles,
				BillingCycle:     string(sub.BillingCycle),
				ActorID:          actorID,
				CreatedAt:        now,
			})
		})
	})
	if err != nil {
		return subscriptiondomain.SubscriptionResponse{}, err
	}

	s.invalidate(ctx, workspaceID)
	s.metrics.RecordSubscriptionEvent(ctx, "created", string(sub.BillingCycle))
	obslogger.WithContext(ctx, s.log).Info("subscription created",
		zap.String("workspace_id", workspaceID),
		zap.String("subscription_id", sub.ID.String()),
		zap.Strings("bundles", sub.Bundles),
		zap.Int64("total_cents", breakdown.TotalAmountCents),
	)
	return sub.Response(), nil
}

func (s *Service) Get(ctx context.Context, workspaceID string) (subscriptiondomain.SubscriptionResponse, error) {
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return subscriptiondomain.SubscriptionResponse{}, subscriptiondomain.ErrInvalidWorkspace
	}

	var sub *subscriptiondomain.Subscription
	err := s.guard.Do(ctx, "subscription.get", func(ctx context.Context) error {
		var err error
		sub, err = s.repo.FindLatest(ctx, s.db, workspaceID)
		return err
	})
	if err != nil {
		return subscriptiondomain.SubscriptionResponse{}, err
	}
	if sub == nil {
		return subscriptiondomain.SubscriptionResponse{}, subscriptiondomain.ErrSubscriptionNotFound
	}
	return sub.Response(), nil
}

func (s *Service) Snapshot(ctx context.Context, workspaceID string) (subscriptiondomain.Snapshot, error) {
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return subscriptiondomain.Snapshot{}, subscriptiondomain.ErrInvalidWorkspace
	}
	if snapshot, ok := s.cache.Get(ctx, workspaceID); ok {
		return snapshot, nil
	}

	var sub *subscriptiondomain.Subscription
	err := s.guard.Do(ctx, "subscription.snapshot", func(ctx context.Context) error {
		var err error
		sub, err = s.repo.FindLive(ctx, s.db, workspaceID)
		return err
	})
	if err != nil {
		return subscriptiondomain.Snapshot{}, err
	}

	snapshot := subscriptiondomain.SnapshotOf(workspaceID, sub)
	s.cache.Set(ctx, snapshot)
	return snapshot, nil
}

func (s *Service) Upgrade(ctx context.Context, req subscriptiondomain.ChangeBundlesRequest) (subscriptiondomain.ModifyBundlesResponse, error) {
	return s.ModifyBundles(ctx, subscriptiondomain.ModifyBundlesRequest{
		WorkspaceID: req.WorkspaceID,
		Action:      historydomain.ActionAdd,
		BundleIDs:   req.BundleIDs,
		ActorID:     req.ActorID,
	})
}

func (s *Service) Downgrade(ctx context.Context, req subscriptiondomain.ChangeBundlesRequest) (subscriptiondomain.ModifyBundlesResponse, error) {
	return s.ModifyBundles(ctx, subscriptiondomain.ModifyBundlesRequest{
		WorkspaceID: req.WorkspaceID,
		Action:      historydomain.ActionRemove,
		BundleIDs:   req.BundleIDs,
		ActorID:     req.ActorID,
	})
}

func (s *Service) ModifyBundles(ctx context.Context, req subscriptiondomain.ModifyBundlesRequest) (subscriptiondomain.ModifyBundlesResponse, error) {
	workspaceID, actorID, err := normalizeIdentity(req.WorkspaceID, req.ActorID)
	if err != nil {
		return subscriptiondomain.ModifyBundlesResponse{}, err
	}
	if req.Action != historydomain.ActionAdd && req.Action != historydomain.ActionRemove {
		return subscriptiondomain.ModifyBundlesResponse{}, subscriptiondomain.ErrInvalidAction
	}
	requested := pricing.Dedupe(req.BundleIDs)
	if len(requested) == 0 {
		return subscriptiondomain.ModifyBundlesResponse{}, bundledomain.ErrEmptyBundleSet
	}
	if err := s.catalog.ValidateBundleIDs(requested); err != nil {
		return subscriptiondomain.ModifyBundlesResponse{}, err
	}

	unlock, err := s.lockWorkspace(ctx, workspaceID)
	if err != nil {
		return subscriptiondomain.ModifyBundlesResponse{}, err
	}
	defer unlock()

	var resp subscriptiondomain.ModifyBundlesResponse
	err = s.retryOnConflict(ctx, workspaceID, func(ctx context.Context) error {
		sub, err := s.findLive(ctx, workspaceID)
		if err != nil {
			return err
		}
		if sub == nil {
			return subscriptiondomain.ErrSubscriptionNotFound
		}

		before := sub.BundleIDs()
		after, changed := applyChange(before, req.Action, requested)
		previous := sub.Pricing.Data()
		if len(changed) == 0 {
			resp = subscriptiondomain.ModifyBundlesResponse{
				Subscription:   sub.Response(),
				BundlesChanged: []bundledomain.BundleID{},
				PreviousAmount: bundledomain.CentsToAmount(previous.TotalAmountCents),
			}
			return nil
		}
		if len(after) == 0 {
			return subscriptiondomain.ErrCannotRemoveLastBundle
		}

		breakdown, err := s.calculator.Calculate(after, sub.BillingCycle)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		expected := sub.Version
		sub.Bundles = bundleStrings(after)
		sub.Pricing = datatypes.NewJSONType(subscriptiondomain.SnapshotFromBreakdown(breakdown, now))
		sub.ModifiedAt = now
		delta := breakdown.TotalAmountCents - previous.TotalAmountCents
		action := req.Action

		err = s.guard.Do(ctx, "subscription.modify", func(ctx context.Context) error {
			return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				updated, err := s.repo.UpdateVersioned(ctx, tx, sub, expected)
				if err != nil {
					return err
				}
				if !updated {
					return errVersionConflict
				}
				return s.historysvc.Append(ctx, tx, &historydomain.Entry{
					WorkspaceID:      workspaceID,
					SubscriptionID:   sub.ID,
					Type:             historydomain.EntryTypeBundleModification,
					Action:           &action,
					AmountCents:      breakdown.TotalAmountCents,
					AmountDeltaCents: delta,
					Currency:         breakdown.Currency,
					BundlesBefore:    bundleStrings(before),
					BundlesAfter:     sub.Bundles,
					BundlesChanged:   bundleStrings(changed),
					BillingCycle:     string(sub.BillingCycle),
					ActorID:          actorID,
					CreatedAt:        now,
				})
			})
		})
		if err != nil {
			return err
		}

		resp = subscriptiondomain.ModifyBundlesResponse{
			Subscription:   sub.Response(),
			Changed:        true,
			BundlesChanged: changed,
			PreviousAmount: bundledomain.CentsToAmount(previous.TotalAmountCents),
			AmountDelta:    bundledomain.CentsToAmount(delta),
		}
		return nil
	})
	if err != nil {
		return subscriptiondomain.ModifyBundlesResponse{}, err
	}

	if resp.Changed {
		s.invalidate(ctx, workspaceID)
		s.metrics.RecordSubscriptionEvent(ctx, "modified", string(resp.Subscription.BillingCycle))
		obslogger.WithContext(ctx, s.log).Info("subscription bundles modified",
			zap.String("workspace_id", workspaceID),
			zap.String("action", string(req.Action)),
			zap.Strings("bundles", bundleStrings(resp.Subscription.Bundles)),
			zap.Float64("amount_delta", resp.AmountDelta),
		)
	}
	return resp, nil
}

func (s *Service) Cancel(ctx context.Context, req subscriptiondomain.CancelSubscriptionRequest) (subscriptiondomain.SubscriptionResponse, error) {
	workspaceID, actorID, err := normalizeIdentity(req.WorkspaceID, req.ActorID)
	if err != nil {
		return subscriptiondomain.SubscriptionResponse{}, err
	}

	unlock, err := s.lockWorkspace(ctx, workspaceID)
	if err != nil {
		return subscriptiondomain.SubscriptionResponse{}, err
	}
	defer unlock()

	var (
		result    subscriptiondomain.SubscriptionResponse
		cancelled bool
	)
	err = s.retryOnConflict(ctx, workspaceID, func(ctx context.Context) error {
		var sub *subscriptiondomain.Subscription
		err := s.guard.Do(ctx, "subscription.cancel.lookup", func(ctx context.Context) error {
			var err error
			sub, err = s.repo.FindLatest(ctx, s.db, workspaceID)
			return err
		})
		if err != nil {
			return err
		}
		if sub == nil {
			return subscriptiondomain.ErrSubscriptionNotFound
		}
		if !sub.IsLive() {
			result = sub.Response()
			return nil
		}

		now := s.clock.Now()
		expected := sub.Version
		before := sub.Bundles
		previous := sub.Pricing.Data()
		sub.Status = subscriptiondomain.SubscriptionStatusCancelled
		sub.AutoRenew = false
		sub.CancelledAt = &now
		sub.CancelledBy = &actorID
		sub.CancellationReason = optionalString(req.Reason)
		sub.ModifiedAt = now

		err = s.guard.Do(ctx, "subscription.cancel", func(ctx context.Context) error {
			return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				updated, err := s.repo.UpdateVersioned(ctx, tx, sub, expected)
				if err != nil {
					return err
				}
				if !updated {
					return errVersionConflict
				}
				return s.historysvc.Append(ctx, tx, &historydomain.Entry{
					WorkspaceID:      workspaceID,
					SubscriptionID:   sub.ID,
					Type:             historydomain.EntryTypeCancellation,
					AmountCents:      0,
					AmountDeltaCents: -previous.TotalAmountCents,
					Currency:         previous.Currency,
					BundlesBefore:    before,
					BundlesAfter:     []string{},
					BundlesChanged:   before,
					BillingCycle:     string(sub.BillingCycle),
					Reason:           sub.CancellationReason,
					ActorID:          actorID,
					CreatedAt:        now,
				})
			})
		})
		if err != nil {
			return err
		}
		result = sub.Response()
		cancelled = true
		return nil
	})
	if err != nil {
		return subscriptiondomain.SubscriptionResponse{}, err
	}

	if cancelled {
		s.invalidate(ctx, workspaceID)
		s.metrics.RecordSubscriptionEvent(ctx, "cancelled", string(result.BillingCycle))
		obslogger.WithContext(ctx, s.log).Info("subscription cancelled",
			zap.String("workspace_id", workspaceID),
			zap.String("subscription_id", result.ID),
		)
	}
	return result, nil
}

func (s *Service) findLive(ctx context.Context, workspaceID string) (*subscriptiondomain.Subscription, error) {
	var sub *subscriptiondomain.Subscription
	err := s.guard.Do(ctx, "subscription.find_live", func(ctx context.Context) error {
		var err error
		sub, err = s.repo.FindLive(ctx, s.db, workspaceID)
		return err
	})
	return sub, err
}

// retryOnConflict re-runs attempt while a concurrent writer bumps the row version.
func (s *Service) retryOnConflict(ctx context.Context, workspaceID string, attempt func(ctx context.Context) error) error {
	for i := 1; i <= maxModifyAttempts; i++ {
		err := attempt(ctx)
		if !errors.Is(err, errVersionConflict) {
			return err
		}
		s.log.Debug("subscription version conflict",
			zap.String("workspace_id", workspaceID),
			zap.Int("attempt", i),
		)
	}
	return subscriptiondomain.ErrConcurrentModification
}

func (s *Service) lockWorkspace(ctx context.Context, workspaceID string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, workspaceID)
	if errors.Is(err, lock.ErrNotAcquired) {
		return unlock, subscriptiondomain.ErrWorkspaceBusy
	}
	return unlock, err
}

// applyChange returns the resulting ordered set and the ids that actually changed it.
func applyChange(current []bundledomain.BundleID, action historydomain.Action, requested []bundledomain.BundleID) ([]bundledomain.BundleID, []bundledomain.BundleID) {
	present := make(map[bundledomain.BundleID]struct{}, len(current))
	for _, id := range current {
		present[id] = struct{}{}
	}

	changed := make([]bundledomain.BundleID, 0, len(requested))
	switch action {
	case historydomain.ActionAdd:
		after := append([]bundledomain.BundleID{}, current...)
		for _, id := range requested {
			if _, ok := present[id]; ok {
				continue
			}
			after = append(after, id)
			changed = append(changed, id)
		}
		return after, changed
	default:
		removing := make(map[bundledomain.BundleID]struct{}, len(requested))
		for _, id := range requested {
			if _, ok := present[id]; ok {
				removing[id] = struct{}{}
				changed = append(changed, id)
			}
		}
		after := make([]bundledomain.BundleID, 0, len(current))
		for _, id := range current {
			if _, ok := removing[id]; !ok {
				after = append(after, id)
			}
		}
		return after, changed
	}
}

func periodEnd(start time.Time, cycle bundledomain.BillingCycle) time.Time {
	if cycle == bundledomain.BillingCycleYearly {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

func normalizeIdentity(workspaceID, actorID string) (string, string, error) {
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return "", "", subscriptiondomain.ErrInvalidWorkspace
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return "", "", subscriptiondomain.ErrInvalidActor
	}
	return workspaceID, actorID, nil
}

func bundleStrings(ids []bundledomain.BundleID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// invalidate runs after commit, so it must outlive a client that already hung up.
func (s *Service) invalidate(ctx context.Context, workspaceID string) {
	s.cache.Invalidate(context.WithoutCancel(ctx), workspaceID)
}
