package tx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUndoLog(t *testing.T) {
	t.Run("rollback runs registered undos newest first", func(t *testing.T) {
		ctx, rollback := WithUndo(context.Background())
		var order []string
		OnRollback(ctx, func() { order = append(order, "attempt") })
		OnRollback(ctx, func() { order = append(order, "certificate") })

		rollback()
		assert.Equal(t, []string{"certificate", "attempt"}, order)

		rollback()
		assert.Len(t, order, 2, "a second rollback is a no-op")
	})

	t.Run("registering outside a unit of work is ignored", func(t *testing.T) {
		called := false
		OnRollback(context.Background(), func() { called = true })
		assert.False(t, called)
	})
}
