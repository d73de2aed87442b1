package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type EvaluateInput struct {
	WorkspaceID  string
	Feature      string
	CurrentUsage int64
	Limit        int64
}

type ListRequest struct {
	WorkspaceID     string
	IncludeResolved bool
}

type ResolveRequest struct {
	WorkspaceID string
	WarningID   string
	ActorID     string
}

type Repository interface {
	InsertIfAbsent(ctx context.Context, db *gorm.DB, warning *Warning) (bool, error)
	List(ctx context.Context, db *gorm.DB, workspaceID string, includeResolved bool) ([]Warning, error)
	FindByID(ctx context.Context, db *gorm.DB, workspaceID string, id int64) (*Warning, error)
	MarkResolved(ctx context.Context, db *gorm.DB, warning *Warning) error
}

type Service interface {
	// Evaluate runs inside the caller's transaction and returns the warning it created, if any.
	Evaluate(ctx context.Context, tx *gorm.DB, in EvaluateInput) (*WarningResponse, error)
	List(ctx context.Context, req ListRequest) ([]WarningResponse, error)
	Resolve(ctx context.Context, req ResolveRequest) (WarningResponse, error)
}

var (
	ErrInvalidWorkspace = errors.New("invalid_workspace")
	ErrInvalidWarning   = errors.New("invalid_warning")
	ErrInvalidActor     = errors.New("invalid_actor")
	ErrWarningNotFound  = errors.New("warning_not_found")
)
