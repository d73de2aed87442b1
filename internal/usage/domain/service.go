package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	bundledomain "github.com/mewayz/workspacebilling/internal/bundle/domain"
	warningdomain "github.com/mewayz/workspacebilling/internal/usagewarning/domain"
	"gorm.io/gorm"
)

// TrackUsageRequest.Amount defaults to 1 when nil.
type TrackUsageRequest struct {
	WorkspaceID    string
	Feature        string
	Amount         *int64
	ActorID        string
	Metadata       map[string]any
	IdempotencyKey string
}

type TrackUsageResponse struct {
	EventID      string                         `json:"event_id"`
	WorkspaceID  string                         `json:"workspace_id"`
	Feature      string                         `json:"feature"`
	LimitKey     string                         `json:"limit_key"`
	Amount       int64                          `json:"amount"`
	CurrentUsage int64                          `json:"current_usage"`
	Limit        int64                          `json:"limit"`
	Remaining    int64                          `json:"remaining"`
	Percentage   float64                        `json:"percentage"`
	Unlimited    bool                           `json:"unlimited"`
	PeriodStart  time.Time                      `json:"period_start"`
	Warning      *warningdomain.WarningResponse `json:"warning,omitempty"`
	Replayed     bool                           `json:"replayed"`
}

// CheckUsageRequest.Amount defaults to 1 when zero.
type CheckUsageRequest struct {
	WorkspaceID string
	Feature     string
	Amount      int64
}

type CheckUsageResponse struct {
	WorkspaceID  string    `json:"workspace_id"`
	Feature      string    `json:"feature"`
	LimitKey     string    `json:"limit_key"`
	Allowed      bool      `json:"allowed"`
	CurrentUsage int64     `json:"current_usage"`
	Limit        int64     `json:"limit"`
	Remaining    int64     `json:"remaining"`
	WouldBeTotal int64     `json:"would_be_total"`
	Unlimited    bool      `json:"unlimited"`
	PeriodStart  time.Time `json:"period_start"`
}

type FeatureUsage struct {
	Feature      string                   `json:"feature"`
	LimitKey     string                   `json:"limit_key"`
	ResetPolicy  bundledomain.ResetPolicy `json:"reset_policy"`
	Limit        int64                    `json:"limit"`
	CurrentUsage int64                    `json:"current_usage"`
	Remaining    int64                    `json:"remaining"`
	Percentage   float64                  `json:"percentage"`
	Unlimited    bool                     `json:"unlimited"`
	PeriodStart  time.Time                `json:"period_start"`
}

type UsageLimitsResponse struct {
	WorkspaceID string                  `json:"workspace_id"`
	Bundles     []bundledomain.BundleID `json:"bundles"`
	Features    []FeatureUsage          `json:"features"`
}

type Repository interface {
	FindEventByKey(ctx context.Context, db *gorm.DB, workspaceID, key string) (*UsageEvent, error)
	InsertEvent(ctx context.Context, db *gorm.DB, event *UsageEvent) error
	EnsureAggregate(ctx context.Context, db *gorm.DB, agg *UsageAggregate) error
	// Increment adds amount to the counter and reports false, leaving it untouched, when
	// the result would exceed a finite limit or overflow an unlimited one.
	Increment(ctx context.Context, db *gorm.DB, agg *UsageAggregate, amount, limit int64) (bool, error)
	Total(ctx context.Context, db *gorm.DB, workspaceID, feature string, periodStart time.Time) (int64, error)
	ListAggregates(ctx context.Context, db *gorm.DB, workspaceID string, periods []time.Time) ([]UsageAggregate, error)
}

type Service interface {
	TrackUsage(ctx context.Context, req TrackUsageRequest) (TrackUsageResponse, error)
	CheckUsageLimit(ctx context.Context, req CheckUsageRequest) (CheckUsageResponse, error)
	GetUsageLimits(ctx context.Context, workspaceID string) (UsageLimitsResponse, error)
}

var (
	ErrInvalidWorkspace      = errors.New("invalid_workspace")
	ErrInvalidActor          = errors.New("invalid_actor")
	ErrInvalidFeature        = errors.New("invalid_feature")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInvalidIdempotencyKey = errors.New("invalid_idempotency_key")
	ErrLimitExceeded         = errors.New("limit_exceeded")
)

// LimitExceededError carries the counter state that rejected a write.
type LimitExceededError struct {
	Feature   string
	Current   int64
	Limit     int64
	Remaining int64
	Requested int64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s: %s usage %d of %d, requested %d", ErrLimitExceeded, e.Feature, e.Current, e.Limit, e.Requested)
}

func (e *LimitExceededError) Unwrap() error { return ErrLimitExceeded }

// Remaining is what is left under limit, -1 when unlimited.
func Remaining(current, limit int64) int64 {
	if limit == bundledomain.Unlimited {
		return bundledomain.Unlimited
	}
	if current >= limit {
		return 0
	}
	return limit - current
}
