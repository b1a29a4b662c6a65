package application

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bnema/stockroom/internal/adapters/store/sqlstore"
	"github.com/bnema/stockroom/internal/domain"
	"github.com/bnema/stockroom/internal/ports"
)

var (
	testNow     = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	errInjected = errors.New("injected failure")
	errRollback = errors.New("savepoint lost")

	manager = domain.Actor{ID: 100, Role: domain.RoleManager}
	admin   = domain.Actor{ID: 200, Role: domain.RoleAdmin}
	owner   = domain.Actor{ID: 300, Role: domain.RoleOwner}
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func newTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()

	store, err := sqlstore.Open(context.Background(), sqlstore.DriverSQLite, filepath.Join(t.TempDir(), "stockroom.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seed(t *testing.T, store *sqlstore.Store, resourceType domain.ResourceType, logins ...string) []domain.ResourceID {
	t.Helper()

	ingestion := NewIngestionService(store, &fixedClock{now: testNow.Add(-time.Hour)}, zerolog.Nop())
	ids := make([]domain.ResourceID, 0, len(logins))
	for _, login := range logins {
		result, err := ingestion.Ingest(context.Background(), owner, resourceType, login+":pw-"+login, decimal.RequireFromString("10"))
		require.NoError(t, err)
		require.Equal(t, 1, result.Inserted)
	}

	free, err := store.FreeByType(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, free)

	err = store.WithinTx(context.Background(), func(tx ports.InventoryTx) error {
		rows, err := tx.LockFree(context.Background(), resourceType, 1000)
		if err != nil {
			return err
		}
		for _, r := range rows {
			ids = append(ids, r.ID)
		}
		return nil
	})
	require.NoError(t, err)
	return ids
}

// faultyInventory injects failures into selected transactional calls.
type faultyInventory struct {
	*sqlstore.Store
	failAction   domain.Action
	failLogin    string
	failRollback bool
}

func (f *faultyInventory) WithinTx(ctx context.Context, fn func(tx ports.InventoryTx) error) error {
	return f.Store.WithinTx(ctx, func(tx ports.InventoryTx) error {
		return fn(&faultyTx{InventoryTx: tx, inv: f})
	})
}

type faultyTx struct {
	ports.InventoryTx
	inv *faultyInventory
}

func (t *faultyTx) AppendHistory(ctx context.Context, entry domain.HistoryEntry) error {
	if t.inv.failAction != "" && entry.Action == t.inv.failAction {
		return errInjected
	}
	return t.InventoryTx.AppendHistory(ctx, entry)
}

func (t *faultyTx) RollbackTo(ctx context.Context, name string) error {
	if t.inv.failRollback {
		return errRollback
	}
	return t.InventoryTx.RollbackTo(ctx, name)
}

func (t *faultyTx) InsertResource(ctx context.Context, r domain.NewResource) (domain.ResourceID, bool, error) {
	if t.inv.failLogin != "" && r.Login == t.inv.failLogin {
		return 0, false, errInjected
	}
	return t.InventoryTx.InsertResource(ctx, r)
}
