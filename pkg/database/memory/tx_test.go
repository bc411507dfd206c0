package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteTxWithinCtx_Commit(t *testing.T) {
	var values []int

	err := ExecuteTxWithinCtx(context.Background(), func(ctx context.Context) error {
		assert.True(t, InTx(ctx))

		values = append(values, 1)
		OnRollback(ctx, func() { values = values[:0] })
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, values)
}

func TestExecuteTxWithinCtx_Rollback(t *testing.T) {
	expected := errors.New("failure")
	values := []int{0}

	var order []int
	err := ExecuteTxWithinCtx(context.Background(), func(ctx context.Context) error {
		for i := 1; i <= 3; i++ {
			i := i
			values = append(values, i)
			OnRollback(ctx, func() {
				order = append(order, i)
				values = values[:len(values)-1]
			})
		}
		return expected
	})
	assert.Equal(t, expected, err)
	assert.Equal(t, []int{0}, values)
	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestExecuteTxWithinCtx_Nested(t *testing.T) {
	err := ExecuteTxWithinCtx(context.Background(), func(ctx context.Context) error {
		return ExecuteTxWithinCtx(ctx, func(context.Context) error {
			return nil
		})
	})
	assert.Equal(t, ErrAlreadyInTx, err)
}

func TestOnRollback_NoTx(t *testing.T) {
	var called bool
	OnRollback(context.Background(), func() { called = true })
	assert.False(t, InTx(context.Background()))
	assert.False(t, called)
}
