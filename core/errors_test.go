package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainErrorChecks(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("strategy: %w", ErrRepositoryUnavailable("find similar users", cause))

	assert.True(t, IsDomainError(err))
	assert.True(t, IsUnavailable(err))
	assert.False(t, IsNotFound(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ModuleRepository, GetDomainError(err).Module)

	assert.True(t, IsInvalidInput(ErrInvalidContext("unknown product P9")))
	assert.True(t, IsStoreNotFound(ErrStoreNotFound))
	assert.False(t, IsStoreNotFound(ErrInvalidContext("x")))
	assert.Nil(t, GetDomainError(nil))
}

func TestActionValid(t *testing.T) {
	for _, a := range []Action{ActionView, ActionCart, ActionPurchase, ActionFavorite, ActionShare} {
		assert.True(t, a.Valid(), a)
	}
	assert.False(t, Action("like").Valid())
}
