package repository

import (
	"context"
	"errors"

	subscriptiondomain "github.com/mewayz/workspacebilling/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Create(subscription).Error
}

func (r *repo) FindLive(ctx context.Context, db *gorm.DB, workspaceID string) (*subscriptiondomain.Subscription, error) {
	var sub subscriptiondomain.Subscription
	err := db.WithContext(ctx).
		Scopes(subscriptiondomain.NotCancelled).
		Where("workspace_id = ?", workspaceID).
		Take(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindLatest prefers the live row and otherwise returns the most recently cancelled one.
func (r *repo) FindLatest(ctx context.Context, db *gorm.DB, workspaceID string) (*subscriptiondomain.Subscription, error) {
	live, err := r.FindLive(ctx, db, workspaceID)
	if err != nil || live != nil {
		return live, err
	}

	var sub subscriptiondomain.Subscription
	err = db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("cancelled_at DESC").
		Order("id DESC").
		Take(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repo) UpdateVersioned(ctx context.Context, db *gorm.DB, sub *subscriptiondomain.Subscription, expectedVersion int64) (bool, error) {
	result := db.WithContext(ctx).
		Model(&subscriptiondomain.Subscription{}).
		Where("id = ? AND version = ?", sub.ID, expectedVersion).
		Updates(map[string]any{
			"bundles":             sub.Bundles,
			"status":              sub.Status,
			"pricing":             sub.Pricing,
			"auto_renew":          sub.AutoRenew,
			"cancelled_at":        sub.CancelledAt,
			"cancelled_by":        sub.CancelledBy,
			"cancellation_reason": sub.CancellationReason,
			"modified_at":         sub.ModifiedAt,
			"version":             expectedVersion + 1,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	sub.Version = expectedVersion + 1
	return true, nil
}
