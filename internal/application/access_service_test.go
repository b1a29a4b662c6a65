package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/stockroom/internal/domain"
)

func TestAccessResolveAndRegister(t *testing.T) {
	store := newTestStore(t)
	service := NewAccessService(store, &fixedClock{now: testNow})
	ctx := context.Background()

	actor, err := service.Resolve(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{ID: 42, Role: domain.RoleNone}, actor)

	registered, err := service.Register(ctx, 42, " Ann ", "Admin")
	require.NoError(t, err)
	assert.Equal(t, "Ann", registered.Name)

	actor, err = service.Resolve(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{ID: 42, Role: domain.RoleAdmin}, actor)

	_, err = service.Register(ctx, 43, "", "intern")
	require.Error(t, err)
	assert.True(t, domain.IsRejection(err))

	managers, err := service.List(ctx)
	require.NoError(t, err)
	assert.Len(t, managers, 1)
}
