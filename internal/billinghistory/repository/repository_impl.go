package repository

import (
	"context"

	historydomain "github.com/mewayz/workspacebilling/internal/billinghistory/domain"
	"github.com/mewayz/workspacebilling/pkg/db/option"
	"github.com/mewayz/workspacebilling/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() historydomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *historydomain.Entry) error {
	return repository.For[historydomain.Entry](db).Create(ctx, entry)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, workspaceID string, limit, offset int) ([]historydomain.Entry, error) {
	rows, err := repository.For[historydomain.Entry](db).Find(ctx,
		&historydomain.Entry{WorkspaceID: workspaceID},
		option.WithSortBy("created_at", option.DESC),
		option.WithSortBy("id", option.DESC),
		option.WithLimit(limit),
		option.WithOffset(offset),
	)
	if err != nil {
		return nil, err
	}

	entries := make([]historydomain.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, *row)
	}
	return entries, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, workspaceID string) (int64, error) {
	return repository.For[historydomain.Entry](db).Count(ctx, &historydomain.Entry{WorkspaceID: workspaceID})
}
