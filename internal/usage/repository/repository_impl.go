package repository

import (
	"context"
	"math"
	"time"

	bundledomain "github.com/mewayz/workspacebilling/internal/bundle/domain"
	usagedomain "github.com/mewayz/workspacebilling/internal/usage/domain"
	"github.com/mewayz/workspacebilling/pkg/db/option"
	"github.com/mewayz/workspacebilling/pkg/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() usagedomain.Repository {
	return &repo{}
}

func (r *repo) FindEventByKey(ctx context.Context, db *gorm.DB, workspaceID, key string) (*usagedomain.UsageEvent, error) {
	return repository.For[usagedomain.UsageEvent](db).FindOne(ctx,
		&usagedomain.UsageEvent{},
		option.WithWhere("workspace_id = ? AND idempotency_key = ?", workspaceID, key),
	)
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *usagedomain.UsageEvent) error {
	return repository.For[usagedomain.UsageEvent](db).Create(ctx, event)
}

func (r *repo) EnsureAggregate(ctx context.Context, db *gorm.DB, agg *usagedomain.UsageAggregate) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "feature"}, {Name: "period_start"}},
			DoNothing: true,
		}).
		Create(agg).Error
}

func (r *repo) Increment(ctx context.Context, db *gorm.DB, agg *usagedomain.UsageAggregate, amount, limit int64) (bool, error) {
	stmt := db.WithContext(ctx).
		Model(&usagedomain.UsageAggregate{}).
		Where("workspace_id = ? AND feature = ? AND period_start = ?", agg.WorkspaceID, agg.Feature, agg.PeriodStart)
	// Written as a subtraction so a huge amount cannot overflow the bigint column.
	bound := limit
	if limit == bundledomain.Unlimited {
		bound = math.MaxInt64
	}
	stmt = stmt.Where("total <= ? - ?", bound, amount)
	result := stmt.Updates(map[string]any{
		"total":      gorm.Expr("total + ?", amount),
		"updated_at": agg.UpdatedAt,
	})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Total(ctx context.Context, db *gorm.DB, workspaceID, feature string, periodStart time.Time) (int64, error) {
	agg, err := repository.For[usagedomain.UsageAggregate](db).FindOne(ctx,
		&usagedomain.UsageAggregate{},
		option.WithWhere("workspace_id = ? AND feature = ? AND period_start = ?", workspaceID, feature, periodStart),
	)
	if err != nil || agg == nil {
		return 0, err
	}
	return agg.Total, nil
}

func (r *repo) ListAggregates(ctx context.Context, db *gorm.DB, workspaceID string, periods []time.Time) ([]usagedomain.UsageAggregate, error) {
	if len(periods) == 0 {
		return nil, nil
	}
	rows, err := repository.For[usagedomain.UsageAggregate](db).Find(ctx,
		&usagedomain.UsageAggregate{WorkspaceID: workspaceID},
		option.WithWhere("period_start IN ?", periods),
	)
	if err != nil {
		return nil, err
	}

	aggregates := make([]usagedomain.UsageAggregate, 0, len(rows))
	for _, row := range rows {
		aggregates = append(aggregates, *row)
	}
	return aggregates, nil
}
