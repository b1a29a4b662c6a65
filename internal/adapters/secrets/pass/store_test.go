package pass

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/stockroom/internal/ports"
)

func TestStorePutUsesPassInsertUnderPrefix(t *testing.T) {
	t.Parallel()

	called := false
	store := NewStore("")
	store.run = func(ctx context.Context, input string, args ...string) (string, string, error) {
		called = true
		assert.Equal(t, []string{"insert", "-m", "-f", "stockroom/database/dsn"}, args)
		assert.Equal(t, "postgres://u:p@db/stock\n", input)
		return "", "", nil
	}

	err := store.Put(context.Background(), "/database/dsn", "postgres://u:p@db/stock")
	require.NoError(t, err)
	assert.True(t, called)
}

func TestStoreGetReturnsFirstLine(t *testing.T) {
	t.Parallel()

	store := NewStore("ops/stockroom/")
	store.run = func(ctx context.Context, input string, args ...string) (string, string, error) {
		assert.Equal(t, []string{"show", "ops/stockroom/redis/password"}, args)
		assert.Empty(t, input)
		return "hunter2\r\nrotated: 2026-01-01\n", "", nil
	}

	value, err := store.Get(context.Background(), "redis/password")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", value)
}

func TestStoreGetMapsMissingEntry(t *testing.T) {
	t.Parallel()

	store := NewStore("")
	store.run = func(ctx context.Context, input string, args ...string) (string, string, error) {
		return "", "Error: stockroom/database/dsn is not in the password store.", errors.New("exit status 1")
	}

	_, err := store.Get(context.Background(), "database/dsn")
	require.ErrorIs(t, err, ports.ErrSecretNotFound)
}

func TestStoreDeleteUsesPassRemove(t *testing.T) {
	t.Parallel()

	store := NewStore("")
	store.run = func(ctx context.Context, input string, args ...string) (string, string, error) {
		assert.Equal(t, []string{"rm", "-f", "stockroom/database/dsn"}, args)
		return "", "", nil
	}

	require.NoError(t, store.Delete(context.Background(), "database/dsn"))
}

func TestStoreErrorsCarryStderr(t *testing.T) {
	t.Parallel()

	store := NewStore("")
	store.run = func(ctx context.Context, input string, args ...string) (string, string, error) {
		return "", "gpg: decryption failed", errors.New("exit status 2")
	}

	_, err := store.Get(context.Background(), "database/dsn")
	require.Error(t, err)
	assert.ErrorContains(t, err, "pass get")
	assert.ErrorContains(t, err, "gpg: decryption failed")

	require.Error(t, store.Put(context.Background(), " ", "x"))
}
