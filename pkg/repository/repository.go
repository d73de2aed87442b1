package repository

import (
	"context"

	"github.com/mewayz/workspacebilling/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic read/append store over a gorm model. Callers pass
// the handle to use, so the same code runs inside or outside a transaction.
type Repository[T any] interface {
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	// FindOne returns nil, nil when nothing matches.
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error)
}

// For binds a Repository for T to db.
func For[T any](db *gorm.DB) Repository[T] {
	return gormStore[T]{db: db}
}
