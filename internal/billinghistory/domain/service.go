package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type ListRequest struct {
	WorkspaceID string
	Limit       int
	Offset      int
}

type ListResponse struct {
	Entries    []EntryResponse `json:"entries"`
	TotalCount int64           `json:"total_count"`
	HasMore    bool            `json:"has_more"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *Entry) error
	List(ctx context.Context, db *gorm.DB, workspaceID string, limit, offset int) ([]Entry, error)
	Count(ctx context.Context, db *gorm.DB, workspaceID string) (int64, error)
}

type Service interface {
	// Append writes inside the caller's transaction.
	Append(ctx context.Context, tx *gorm.DB, entry *Entry) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	// Export renders the full history as an XLSX workbook.
	Export(ctx context.Context, workspaceID string) ([]byte, error)
}

var (
	ErrInvalidWorkspace = errors.New("invalid_workspace")
	ErrInvalidLimit     = errors.New("invalid_limit")
	ErrInvalidOffset    = errors.New("invalid_offset")
	ErrInvalidEntry     = errors.New("invalid_billing_history_entry")
)
