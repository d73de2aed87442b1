// Package domain contains the usage ledger: immutable events plus per-period counters.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// UsageEvent stores a single accepted unit of tracked activity.
type UsageEvent struct {
	ID             snowflake.ID      `gorm:"primaryKey"`
	WorkspaceID    string            `gorm:"type:text;not null;index:idx_usage_tracking_workspace_feature,priority:1;uniqueIndex:ux_usage_tracking_idempotency,priority:1,where:idempotency_key IS NOT NULL"`
	Feature        string            `gorm:"type:text;not null;index:idx_usage_tracking_workspace_feature,priority:2"`
	LimitKey       string            `gorm:"type:text;not null"`
	Amount         int64             `gorm:"not null"`
	UserID         string            `gorm:"type:text;not null"`
	PeriodStart    time.Time         `gorm:"not null"`
	IdempotencyKey *string           `gorm:"type:text;uniqueIndex:ux_usage_tracking_idempotency,priority:2"`
	UsageAfter     int64             `gorm:"not null"` // counter value right after this event
	UsageLimit     int64             `gorm:"not null"` // snapshot
	Metadata       datatypes.JSONMap `gorm:"type:json"`
	CreatedAt      time.Time         `gorm:"not null"`
}

func (UsageEvent) TableName() string { return "usage_tracking" }

// UsageAggregate is the running total for one feature in one reset period. Features
// sharing a limit key each count against the full combined limit.
type UsageAggregate struct {
	WorkspaceID string    `gorm:"primaryKey;type:text"`
	Feature     string    `gorm:"primaryKey;type:text"`
	PeriodStart time.Time `gorm:"primaryKey"`
	Total       int64     `gorm:"not null;default:0"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (UsageAggregate) TableName() string { return "usage_aggregates" }
