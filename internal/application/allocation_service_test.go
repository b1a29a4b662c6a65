package application

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/stockroom/internal/domain"
)

func TestAllocateIssuesLowestIDsFirst(t *testing.T) {
	store := newTestStore(t)
	ids := seed(t, store, "mamba", "r1", "r2", "r3")
	service := NewAllocationService(store, &fixedClock{now: testNow}, 10, zerolog.Nop())

	issued, err := service.Allocate(context.Background(), manager, "mamba", 2)
	require.NoError(t, err)
	require.Len(t, issued, 2)
	assert.Equal(t, ids[0], issued[0].ID)
	assert.Equal(t, ids[1], issued[1].ID)
	assert.True(t, issued[0].IssuedTo(manager.ID))
	assert.Equal(t, domain.ReceiptNew, issued[0].ReceiptState)

	for _, r := range issued {
		history, err := store.History(context.Background(), r.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, domain.ActionPurchase, history[0].Action)
		assert.Equal(t, domain.ActionIssue, history[1].Action)
		require.NotNil(t, history[1].ManagerID)
		assert.Equal(t, manager.ID, *history[1].ManagerID)
		assert.Equal(t, testNow, history[1].At)
	}

	third, err := store.Get(context.Background(), ids[2])
	require.NoError(t, err)
	assert.True(t, third.IsFree())
}

func TestAllocateReturnsPartialAndEmpty(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, "tabor", "only")
	service := NewAllocationService(store, &fixedClock{now: testNow}, 10, zerolog.Nop())

	issued, err := service.Allocate(context.Background(), manager, "tabor", 5)
	require.NoError(t, err)
	assert.Len(t, issued, 1)

	issued, err = service.Allocate(context.Background(), manager, "tabor", 5)
	require.NoError(t, err)
	assert.NotNil(t, issued)
	assert.Empty(t, issued)

	issued, err = service.Allocate(context.Background(), manager, "unknown", 1)
	require.NoError(t, err)
	assert.Empty(t, issued)
}

func TestAllocateRejectsBadInput(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	service := NewAllocationService(store, nil, 10, zerolog.Nop())

	tests := []struct {
		name  string
		actor domain.Actor
		typ   domain.ResourceType
		count int
		want  error
	}{
		{name: "zero", actor: manager, typ: "mamba", count: 0, want: domain.ErrInvalidQuantity},
		{name: "above cap", actor: manager, typ: "mamba", count: 11, want: domain.ErrInvalidQuantity},
		{name: "empty type", actor: manager, typ: "  ", count: 1, want: domain.ErrEmptyType},
		{name: "unregistered", actor: domain.Actor{ID: 9}, typ: "mamba", count: 1, want: domain.ErrForbidden},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Allocate(context.Background(), tc.actor, tc.typ, tc.count)
			require.ErrorIs(t, err, tc.want)
			assert.True(t, domain.IsRejection(err))
		})
	}
}

func TestAllocateIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ids := seed(t, store, "mamba", "r1", "r2")
	faulty := &faultyInventory{Store: store, failAction: domain.ActionIssue}
	service := NewAllocationService(faulty, &fixedClock{now: testNow}, 10, zerolog.Nop())

	issued, err := service.Allocate(context.Background(), manager, "mamba", 2)
	require.ErrorIs(t, err, errInjected)
	assert.Nil(t, issued)
	assert.False(t, domain.IsRejection(err))

	for _, id := range ids {
		r, err := store.Get(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, r.IsFree())

		history, err := store.History(context.Background(), id)
		require.NoError(t, err)
		assert.Len(t, history, 1, "only the purchase row may exist")
	}
}

func TestConcurrentAllocationsNeverOverlap(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, "mamba", "r1", "r2", "r3")
	service := NewAllocationService(store, &fixedClock{now: testNow}, 10, zerolog.Nop())

	actors := []domain.Actor{{ID: 1, Role: domain.RoleManager}, {ID: 2, Role: domain.RoleManager}}
	results := make([][]domain.Resource, len(actors))

	var wg sync.WaitGroup
	for i, actor := range actors {
		wg.Add(1)
		go func(i int, actor domain.Actor) {
			defer wg.Done()
			issued, err := service.Allocate(context.Background(), actor, "mamba", 2)
			assert.NoError(t, err)
			results[i] = issued
		}(i, actor)
	}
	wg.Wait()

	seen := map[domain.ResourceID]bool{}
	total := 0
	for _, issued := range results {
		for _, r := range issued {
			assert.False(t, seen[r.ID], "resource %d issued twice", r.ID)
			seen[r.ID] = true
			total++
		}
	}
	assert.Equal(t, 3, total)
}
