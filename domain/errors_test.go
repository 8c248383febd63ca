package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapExecution(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, WrapExecution("SELECT 1", nil))
	})

	t.Run("cancelled", func(t *testing.T) {
		err := WrapExecution("SELECT 1", fmt.Errorf("driver: %w", context.Canceled))
		var cancelled *QueryCancelledError
		assert.True(t, errors.As(err, &cancelled))
		assert.Equal(t, "SELECT 1", cancelled.SQL)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("deadline", func(t *testing.T) {
		err := WrapExecution("SELECT 1", context.DeadlineExceeded)
		var cancelled *QueryCancelledError
		assert.True(t, errors.As(err, &cancelled))
	})

	t.Run("already classified", func(t *testing.T) {
		orig := &QueryCancelledError{SQL: "SELECT 2", Err: context.Canceled}
		assert.Same(t, orig, WrapExecution("SELECT 1", orig))
	})

	t.Run("driver error", func(t *testing.T) {
		cause := errors.New("no such table")
		err := WrapExecution("SELECT 1", cause)
		var execErr *ExecutionError
		assert.True(t, errors.As(err, &execErr))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "execute query: no such table", err.Error())
	})
}

func TestIsSpecError(t *testing.T) {
	assert.True(t, IsSpecError(ErrDataSetFilter("bad op")))
	assert.True(t, IsSpecError(fmt.Errorf("wrap: %w", ErrMetricRequired("none"))))
	assert.True(t, IsSpecError(ErrDataSet("cross")))
	assert.False(t, IsSpecError(ErrPlan("unknown field")))
	assert.False(t, IsSpecError(errors.New("other")))
}
