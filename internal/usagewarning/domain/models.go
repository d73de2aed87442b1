// Package domain contains usage threshold warnings.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

const (
	ThresholdWarning  = 80
	ThresholdCritical = 95
)

// Warning rows are never deleted; resolving one frees its (workspace, feature, threshold) slot.
type Warning struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	WorkspaceID  string       `gorm:"type:text;not null;index;uniqueIndex:ux_usage_warnings_open,priority:1,where:resolved = false"`
	Feature      string       `gorm:"type:text;not null;uniqueIndex:ux_usage_warnings_open,priority:2"`
	Threshold    int          `gorm:"not null;uniqueIndex:ux_usage_warnings_open,priority:3"`
	Severity     Severity     `gorm:"type:text;not null"`
	CurrentUsage int64        `gorm:"not null"`
	UsageLimit   int64        `gorm:"not null"`
	Percentage   float64      `gorm:"not null"`
	Resolved     bool         `gorm:"not null"`
	ResolvedAt   *time.Time   `gorm:""`
	ResolvedBy   *string      `gorm:"type:text"`
	CreatedAt    time.Time    `gorm:"not null"`
}

func (Warning) TableName() string { return "usage_warnings" }

type WarningResponse struct {
	ID           string     `json:"id"`
	WorkspaceID  string     `json:"workspace_id"`
	Feature      string     `json:"feature"`
	Threshold    int        `json:"threshold"`
	Severity     Severity   `json:"severity"`
	CurrentUsage int64      `json:"current_usage"`
	UsageLimit   int64      `json:"usage_limit"`
	Percentage   float64    `json:"percentage"`
	Resolved     bool       `json:"resolved"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy   *string    `json:"resolved_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (w Warning) Response() WarningResponse {
	return WarningResponse{
		ID:           w.ID.String(),
		WorkspaceID:  w.WorkspaceID,
		Feature:      w.Feature,
		Threshold:    w.Threshold,
		Severity:     w.Severity,
		CurrentUsage: w.CurrentUsage,
		UsageLimit:   w.UsageLimit,
		Percentage:   w.Percentage,
		Resolved:     w.Resolved,
		ResolvedAt:   w.ResolvedAt,
		ResolvedBy:   w.ResolvedBy,
		CreatedAt:    w.CreatedAt,
	}
}

// Classify returns the single threshold crossed by current/limit, if any.
func Classify(current, limit int64) (int, Severity, float64, bool) {
	if limit <= 0 {
		return 0, "", 0, false
	}
	pct := Percentage(current, limit)
	switch {
	case current*100 >= ThresholdCritical*limit:
		return ThresholdCritical, SeverityCritical, pct, true
	case current*100 >= ThresholdWarning*limit:
		return ThresholdWarning, SeverityWarning, pct, true
	default:
		return 0, "", pct, false
	}
}

// Percentage is current/limit*100 rounded to two decimals.
func Percentage(current, limit int64) float64 {
	if limit <= 0 {
		return 0
	}
	basis := (current*100000/limit + 5) / 10
	return float64(basis) / 100
}
