package persistence_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dukex/pvm/pkg/persistence"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		pointerErr := persistence.NewPointerError("GetByID", "pointer-123", persistence.ErrPointerNotFound)
		executionErr := persistence.NewExecutionError("GetByID", "execution-456", persistence.ErrExecutionNotFound)
		userErr := persistence.NewUserError("GetByIdentifier", "juan", persistence.ErrUserNotFound)

		assert.True(t, persistence.IsPointerNotFound(pointerErr))
		assert.True(t, persistence.IsExecutionNotFound(executionErr))
		assert.True(t, persistence.IsUserNotFound(userErr))
		assert.False(t, persistence.IsUserNotFound(pointerErr))

		assert.True(t, errors.Is(pointerErr, persistence.ErrPointerNotFound))
	})

	t.Run("record error contains context", func(t *testing.T) {
		err := persistence.NewExecutionError("Save", "execution-456", errors.New("connection refused"))

		assert.Contains(t, err.Error(), "Save")
		assert.Contains(t, err.Error(), "execution execution-456")
		assert.Contains(t, err.Error(), "connection refused")
	})
}
