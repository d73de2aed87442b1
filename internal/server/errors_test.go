package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/mewayz/workspacebilling/internal/authorization"
	bundledomain "github.com/mewayz/workspacebilling/internal/bundle/domain"
	subscriptiondomain "github.com/mewayz/workspacebilling/internal/subscription/domain"
	usagedomain "github.com/mewayz/workspacebilling/internal/usage/domain"
	"github.com/mewayz/workspacebilling/pkg/db"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"invalid bundle", fmt.Errorf("%w: %q", bundledomain.ErrInvalidBundle, "gaming"), http.StatusBadRequest, "invalid_bundle"},
		{"empty set", bundledomain.ErrEmptyBundleSet, http.StatusBadRequest, "empty_bundle_set"},
		{"cycle", bundledomain.ErrInvalidBillingCycle, http.StatusBadRequest, "invalid_billing_cycle"},
		{"unknown feature", fmt.Errorf("%w: teleport", bundledomain.ErrUnknownFeature), http.StatusBadRequest, "unknown_feature"},
		{"already subscribed", subscriptiondomain.ErrAlreadySubscribed, http.StatusConflict, "already_subscribed"},
		{"not found", subscriptiondomain.ErrSubscriptionNotFound, http.StatusNotFound, "not_found"},
		{"denied", authorization.ErrForbidden, http.StatusForbidden, "permission_denied"},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"last bundle", subscriptiondomain.ErrCannotRemoveLastBundle, http.StatusBadRequest, "cannot_remove_last_bundle"},
		{"storage", fmt.Errorf("subscription.create: %w", db.ErrStorageUnavailable), http.StatusServiceUnavailable, "storage_unavailable"},
		{"retries exhausted", subscriptiondomain.ErrConcurrentModification, http.StatusConflict, "conflict"},
		{"lock busy", subscriptiondomain.ErrWorkspaceBusy, http.StatusConflict, "conflict"},
		{"invalid amount", usagedomain.ErrInvalidAmount, http.StatusBadRequest, "validation_error"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.kind, payload.Type)
		})
	}
}

func TestMapErrorLimitExceededDetails(t *testing.T) {
	err := fmt.Errorf("track: %w", &usagedomain.LimitExceededError{
		Feature: "instagram_searches", Current: 950, Limit: 1000, Remaining: 50, Requested: 100,
	})

	status, payload := mapError(err)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "limit_exceeded", payload.Type)
	assert.Equal(t, int64(950), payload.Details["current"])
	assert.Equal(t, int64(50), payload.Details["remaining"])
}

func TestClassifyErrorForLog(t *testing.T) {
	kind, code := classifyErrorForLog(fmt.Errorf("wrap: %w", usagedomain.ErrInvalidIdempotencyKey))
	assert.Equal(t, "validation_error", kind)
	assert.Equal(t, "invalid_idempotency_key", code)

	kind, code = classifyErrorForLog(db.ErrStorageUnavailable)
	assert.Equal(t, "storage_unavailable", kind)
	assert.Equal(t, "storage_unavailable", code)
}
