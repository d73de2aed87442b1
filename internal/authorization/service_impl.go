package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/mewayz/workspacebilling/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectSubscription   = "subscription"
	ObjectBillingHistory = "billing_history"
	ObjectUsage          = "usage"
	ObjectUsageWarning   = "usage_warning"
	ObjectFeatureAccess  = "feature_access"
)

const (
	ActionSubscriptionView   = "subscription.view"
	ActionSubscriptionCreate = "subscription.create"
	ActionSubscriptionUpdate = "subscription.update"
	ActionSubscriptionCancel = "subscription.cancel"

	ActionBillingHistoryView   = "billing_history.view"
	ActionBillingHistoryExport = "billing_history.export"

	ActionUsageView  = "usage.view"
	ActionUsageTrack = "usage.track"

	ActionUsageWarningView    = "usage_warning.view"
	ActionUsageWarningResolve = "usage_warning.resolve"

	ActionFeatureAccessView = "feature_access.view"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	Guard    *db.Guard
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	guard    *db.Guard
}

func NewEnforcer(conn *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(conn)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		guard:    p.Guard,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actorID, workspaceID, object, action string) error {
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	role, err := s.RoleOf(ctx, actorID, workspaceID)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			s.log.Debug("authorization denied: not a member",
				zap.String("workspace_id", workspaceID),
				zap.String("object", object),
				zap.String("action", action),
			)
		}
		return err
	}

	subject := subjectFor(actorID)
	domain := domainFor(workspaceID)
	if err := s.ensureGrouping(subject, roleName(role), domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("workspace_id", workspaceID),
			zap.String("role", string(role)),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

// RoleOf resolves the actor's membership role, or ErrForbidden for non-members.
func (s *ServiceImpl) RoleOf(ctx context.Context, actorID, workspaceID string) (Role, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return "", ErrInvalidActor
	}
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return "", ErrInvalidWorkspace
	}

	var row struct {
		Role string `gorm:"column:role"`
	}
	err := s.guard.Do(ctx, "authorization.role", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Raw(
			`SELECT role
			 FROM workspace_members
			 WHERE workspace_id = ? AND user_id = ?
			 LIMIT 1`,
			workspaceID,
			actorID,
		).Scan(&row).Error
	})
	if err != nil {
		return "", err
	}

	role := Role(strings.ToLower(strings.TrimSpace(row.Role)))
	switch role {
	case RoleOwner, RoleAdmin, RoleMember:
		return role, nil
	default:
		return "", ErrForbidden
	}
}

// ensureGrouping keeps exactly one role link per subject and workspace.
func (s *ServiceImpl) ensureGrouping(subject, role, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == role {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, role, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, role, domain)
	return err
}

func subjectFor(actorID string) string {
	return fmt.Sprintf("user:%s", strings.TrimSpace(actorID))
}

func domainFor(workspaceID string) string {
	return fmt.Sprintf("workspace:%s", strings.TrimSpace(workspaceID))
}

func roleName(role Role) string {
	return fmt.Sprintf("role:%s", role)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	readers := []Role{RoleOwner, RoleAdmin, RoleMember}
	managers := []Role{RoleOwner, RoleAdmin}

	var policies [][]string
	grant := func(roles []Role, object string, actions ...string) {
		for _, role := range roles {
			for _, action := range actions {
				policies = append(policies, []string{roleName(role), object, action})
			}
		}
	}

	grant(managers, ObjectSubscription, ActionSubscriptionView, ActionSubscriptionCreate, ActionSubscriptionUpdate)
	grant([]Role{RoleOwner}, ObjectSubscription, ActionSubscriptionCancel)
	grant(managers, ObjectBillingHistory, ActionBillingHistoryView, ActionBillingHistoryExport)
	grant(readers, ObjectUsage, ActionUsageView, ActionUsageTrack)
	grant(readers, ObjectUsageWarning, ActionUsageWarningView)
	grant(managers, ObjectUsageWarning, ActionUsageWarningResolve)
	grant(readers, ObjectFeatureAccess, ActionFeatureAccessView)

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
