package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingObserver struct {
	operations []string
	errs       []error
}

func (r *recordingObserver) ObserveStorageCall(operation string, _ time.Duration, err error) {
	r.operations = append(r.operations, operation)
	r.errs = append(r.errs, err)
}

func TestGuardDo_TimeoutBecomesUnavailable(t *testing.T) {
	observer := &recordingObserver{}
	guard := NewGuard(10*time.Millisecond, observer)

	err := guard.Do(context.Background(), "usage.track", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var unavailable *UnavailableError
	assert.True(t, errors.As(err, &unavailable))
	assert.Equal(t, "usage.track", unavailable.Operation)
	assert.Equal(t, []string{"usage.track"}, observer.operations)
	assert.Error(t, observer.errs[0])
}

func TestGuardDo_DomainErrorsPassThrough(t *testing.T) {
	domainErr := errors.New("already_subscribed")
	guard := NewGuard(time.Second, nil)

	err := guard.Do(context.Background(), "subscription.create", func(context.Context) error {
		return domainErr
	})

	assert.Same(t, domainErr, err)
	assert.False(t, errors.Is(err, ErrStorageUnavailable))
}

func TestGuardDo_DoesNotDoubleWrap(t *testing.T) {
	guard := NewGuard(time.Second, nil)
	inner := &UnavailableError{Operation: "inner", Err: context.DeadlineExceeded}

	err := guard.Do(context.Background(), "outer", func(context.Context) error { return inner })

	assert.Same(t, inner, err)
}

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: workspace_subscriptions.workspace_id")))
	assert.False(t, IsDuplicateKeyErr(errors.New("syntax error")))
	assert.False(t, IsDuplicateKeyErr(nil))
}
