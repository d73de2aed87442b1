package authorization

import (
	"context"
	"errors"
	"time"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// WorkspaceMember is owned by the workspace module; this service only reads it.
type WorkspaceMember struct {
	WorkspaceID string    `gorm:"primaryKey;type:text"`
	UserID      string    `gorm:"primaryKey;type:text"`
	Role        Role      `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (WorkspaceMember) TableName() string { return "workspace_members" }

type Service interface {
	// Authorize returns ErrForbidden when actorID may not perform action on object in the workspace.
	Authorize(ctx context.Context, actorID, workspaceID, object, action string) error
	RoleOf(ctx context.Context, actorID, workspaceID string) (Role, error)
}

var (
	ErrInvalidActor     = errors.New("invalid_actor")
	ErrInvalidWorkspace = errors.New("invalid_workspace")
	ErrInvalidObject    = errors.New("invalid_object")
	ErrInvalidAction    = errors.New("invalid_action")
	ErrForbidden        = errors.New("permission_denied")
)
