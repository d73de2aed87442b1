package domain

import (
	"context"

	"gorm.io/gorm"
)

// Repository threads *gorm.DB per call so writes can join the caller's transaction.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	FindLive(ctx context.Context, db *gorm.DB, workspaceID string) (*Subscription, error)
	FindLatest(ctx context.Context, db *gorm.DB, workspaceID string) (*Subscription, error)
	// UpdateVersioned applies the row only if its stored version equals expectedVersion.
	UpdateVersioned(ctx context.Context, db *gorm.DB, subscription *Subscription, expectedVersion int64) (bool, error)
}
