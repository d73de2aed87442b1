package repository

import (
	"context"

	warningdomain "github.com/mewayz/workspacebilling/internal/usagewarning/domain"
	"github.com/mewayz/workspacebilling/pkg/db/option"
	"github.com/mewayz/workspacebilling/pkg/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() warningdomain.Repository {
	return &repo{}
}

// InsertIfAbsent relies on the partial unique index over unresolved warnings.
func (r *repo) InsertIfAbsent(ctx context.Context, db *gorm.DB, warning *warningdomain.Warning) (bool, error) {
	result := db.WithContext(ctx).Clauses(openWarningConflictClause()).Create(warning)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, workspaceID string, includeResolved bool) ([]warningdomain.Warning, error) {
	opts := []option.QueryOption{
		option.WithSortBy("created_at", option.DESC),
		option.WithSortBy("id", option.DESC),
	}
	if !includeResolved {
		opts = append(opts, option.WithWhere("resolved = ?", false))
	}
	rows, err := repository.For[warningdomain.Warning](db).Find(ctx,
		&warningdomain.Warning{WorkspaceID: workspaceID},
		opts...,
	)
	if err != nil {
		return nil, err
	}

	warnings := make([]warningdomain.Warning, 0, len(rows))
	for _, row := range rows {
		warnings = append(warnings, *row)
	}
	return warnings, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, workspaceID string, id int64) (*warningdomain.Warning, error) {
	return repository.For[warningdomain.Warning](db).FindOne(ctx,
		&warningdomain.Warning{},
		option.WithWhere("id = ? AND workspace_id = ?", id, workspaceID),
	)
}

func (r *repo) MarkResolved(ctx context.Context, db *gorm.DB, warning *warningdomain.Warning) error {
	return db.WithContext(ctx).
		Model(&warningdomain.Warning{}).
		Where("id = ? AND resolved = ?", warning.ID, false).
		Updates(map[string]any{
			"resolved":    true,
			"resolved_at": warning.ResolvedAt,
			"resolved_by": warning.ResolvedBy,
		}).Error
}

func openWarningConflictClause() clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{{Name: "workspace_id"}, {Name: "feature"}, {Name: "threshold"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "resolved = false"},
		}},
		DoNothing: true,
	}
}
