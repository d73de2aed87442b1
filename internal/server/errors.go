package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mewayz/workspacebilling/internal/authorization"
	historydomain "github.com/mewayz/workspacebilling/internal/billinghistory/domain"
	bundledomain "github.com/mewayz/workspacebilling/internal/bundle/domain"
	featureaccessdomain "github.com/mewayz/workspacebilling/internal/featureaccess/domain"
	subscriptiondomain "github.com/mewayz/workspacebilling/internal/subscription/domain"
	usagedomain "github.com/mewayz/workspacebilling/internal/usage/domain"
	warningdomain "github.com/mewayz/workspacebilling/internal/usagewarning/domain"
	"github.com/mewayz/workspacebilling/pkg/db"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Details map[string]any    `json:"details,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("permission_denied")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// bindingError turns a gin binding failure into field-level validation errors.
func bindingError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return invalidRequestError()
	}

	out := &ValidationErrors{Errors: make([]ValidationError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		field := toSnakeCase(fe.Field())
		out.Errors = append(out.Errors, ValidationError{
			Field:   field,
			Code:    fe.Tag(),
			Message: fieldErrorMessage(field, fe),
		})
	}
	return out
}

func fieldErrorMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func toSnakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var limitErr *usagedomain.LimitExceededError
	if errors.As(err, &limitErr) {
		return http.StatusTooManyRequests, errorPayload{
			Type:    "limit_exceeded",
			Message: fmt.Sprintf("usage limit exceeded for %s", limitErr.Feature),
			Details: map[string]any{
				"feature":   limitErr.Feature,
				"current":   limitErr.Current,
				"limit":     limitErr.Limit,
				"remaining": limitErr.Remaining,
				"requested": limitErr.Requested,
			},
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, bundledomain.ErrInvalidBundle):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_bundle",
			Message: "unknown bundle",
		}
	case errors.Is(err, bundledomain.ErrEmptyBundleSet):
		return http.StatusBadRequest, errorPayload{
			Type:    "empty_bundle_set",
			Message: "at least one bundle is required",
		}
	case errors.Is(err, bundledomain.ErrInvalidBillingCycle):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_billing_cycle",
			Message: "billing cycle must be monthly or yearly",
		}
	case errors.Is(err, bundledomain.ErrUnknownFeature):
		return http.StatusBadRequest, errorPayload{
			Type:    "unknown_feature",
			Message: "feature is not tracked",
		}
	case errors.Is(err, subscriptiondomain.ErrCannotRemoveLastBundle):
		return http.StatusBadRequest, errorPayload{
			Type:    "cannot_remove_last_bundle",
			Message: "a subscription must keep at least one bundle",
		}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "permission_denied",
			Message: "permission denied",
		}
	case errors.Is(err, subscriptiondomain.ErrAlreadySubscribed):
		return http.StatusConflict, errorPayload{
			Type:    "already_subscribed",
			Message: "workspace already has an active subscription",
		}
	case errors.Is(err, subscriptiondomain.ErrConcurrentModification),
		errors.Is(err, subscriptiondomain.ErrWorkspaceBusy):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "subscription was modified concurrently, retry",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, db.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "storage_unavailable",
			Message: "storage unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger with the mapped kind and the underlying code.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	return payload.Type, payload.Type
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isSubscriptionValidationError(err),
		isUsageValidationError(err),
		isWarningValidationError(err),
		isHistoryValidationError(err),
		isFeatureAccessValidationError(err),
		isAuthorizationValidationError(err):
		return true
	default:
		return false
	}
}

func isSubscriptionValidationError(err error) bool {
	switch {
	case errors.Is(err, subscriptiondomain.ErrInvalidWorkspace),
		errors.Is(err, subscriptiondomain.ErrInvalidActor),
		errors.Is(err, subscriptiondomain.ErrInvalidAction):
		return true
	default:
		return false
	}
}

func isUsageValidationError(err error) bool {
	switch {
	case errors.Is(err, usagedomain.ErrInvalidWorkspace),
		errors.Is(err, usagedomain.ErrInvalidActor),
		errors.Is(err, usagedomain.ErrInvalidFeature),
		errors.Is(err, usagedomain.ErrInvalidAmount),
		errors.Is(err, usagedomain.ErrInvalidIdempotencyKey):
		return true
	default:
		return false
	}
}

func isWarningValidationError(err error) bool {
	switch {
	case errors.Is(err, warningdomain.ErrInvalidWorkspace),
		errors.Is(err, warningdomain.ErrInvalidWarning),
		errors.Is(err, warningdomain.ErrInvalidActor):
		return true
	default:
		return false
	}
}

func isHistoryValidationError(err error) bool {
	switch {
	case errors.Is(err, historydomain.ErrInvalidWorkspace),
		errors.Is(err, historydomain.ErrInvalidLimit),
		errors.Is(err, historydomain.ErrInvalidOffset):
		return true
	default:
		return false
	}
}

func isFeatureAccessValidationError(err error) bool {
	switch {
	case errors.Is(err, featureaccessdomain.ErrInvalidWorkspace),
		errors.Is(err, featureaccessdomain.ErrInvalidFeature):
		return true
	default:
		return false
	}
}

func isAuthorizationValidationError(err error) bool {
	switch {
	case errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, authorization.ErrInvalidWorkspace):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound),
		errors.Is(err, warningdomain.ErrWarningNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return rootSentinel(err).Error()
	}
}

// rootSentinel strips fmt.Errorf context so the code is the bare sentinel text.
func rootSentinel(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}
