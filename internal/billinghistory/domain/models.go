// Package domain contains the append-only billing history log.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type EntryType string

const (
	EntryTypeSubscriptionCreated EntryType = "subscription_created"
	EntryTypeBundleModification  EntryType = "bundle_modification"
	EntryTypeCancellation        EntryType = "cancellation"
)

// Action is only set on bundle_modification entries.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// Entry is never updated or deleted once written.
type Entry struct {
	ID               snowflake.ID                `gorm:"primaryKey"`
	WorkspaceID      string                      `gorm:"type:text;not null;index:idx_billing_history_workspace_created,priority:1"`
	SubscriptionID   snowflake.ID                `gorm:"not null;index"`
	Type             EntryType                   `gorm:"type:text;not null"`
	Action           *Action                     `gorm:"type:text"`
	AmountCents      int64                       `gorm:"not null"`
	AmountDeltaCents int64                       `gorm:"not null;default:0"`
	Currency         string                      `gorm:"type:text;not null"`
	BundlesBefore    datatypes.JSONSlice[string] `gorm:"not null"`
	BundlesAfter     datatypes.JSONSlice[string] `gorm:"not null"`
	BundlesChanged   datatypes.JSONSlice[string] `gorm:"not null"`
	BillingCycle     string                      `gorm:"type:text;not null"`
	Reason           *string                     `gorm:"type:text"`
	ActorID          string                      `gorm:"type:text;not null"`
	CreatedAt        time.Time                   `gorm:"not null;index:idx_billing_history_workspace_created,priority:2,sort:desc"`
}

func (Entry) TableName() string { return "workspace_billing_history" }

// EntryResponse is the API rendering of an Entry.
type EntryResponse struct {
	ID             string    `json:"id"`
	WorkspaceID    string    `json:"workspace_id"`
	SubscriptionID string    `json:"subscription_id"`
	Type           EntryType `json:"type"`
	Action         *Action   `json:"action,omitempty"`
	Amount         float64   `json:"amount"`
	AmountDelta    float64   `json:"amount_delta"`
	Currency       string    `json:"currency"`
	BundlesBefore  []string  `json:"bundles_before"`
	BundlesAfter   []string  `json:"bundles_after"`
	BundlesChanged []string  `json:"bundles_changed"`
	BillingCycle   string    `json:"billing_cycle"`
	Reason         *string   `json:"reason,omitempty"`
	ActorID        string    `json:"actor_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func (e Entry) Response() EntryResponse {
	return EntryResponse{
		ID:             e.ID.String(),
		WorkspaceID:    e.WorkspaceID,
		SubscriptionID: e.SubscriptionID.String(),
		Type:           e.Type,
		Action:         e.Action,
		Amount:         float64(e.AmountCents) / 100,
		AmountDelta:    float64(e.AmountDeltaCents) / 100,
		Currency:       e.Currency,
		BundlesBefore:  nonNil(e.BundlesBefore),
		BundlesAfter:   nonNil(e.BundlesAfter),
		BundlesChanged: nonNil(e.BundlesChanged),
		BillingCycle:   e.BillingCycle,
		Reason:         e.Reason,
		ActorID:        e.ActorID,
		CreatedAt:      e.CreatedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
