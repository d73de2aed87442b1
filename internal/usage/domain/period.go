package domain

import (
	"time"

	bundledomain "github.com/mewayz/workspacebilling/internal/bundle/domain"
)

// NeverResets is the fixed period start for counters that never reset.
var NeverResets = time.Unix(0, 0).UTC()

// PeriodStart returns the UTC instant the current counting window for policy began.
func PeriodStart(now time.Time, policy bundledomain.ResetPolicy) time.Time {
	now = now.UTC()
	switch policy {
	case bundledomain.ResetMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	case bundledomain.ResetWeekly:
		sinceMonday := (int(now.Weekday()) + 6) % 7
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return day.AddDate(0, 0, -sinceMonday)
	case bundledomain.ResetDaily:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	default:
		return NeverResets
	}
}
