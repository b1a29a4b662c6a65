package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bnema/stockroom/internal/domain"
	"github.com/bnema/stockroom/internal/ports"
)

var _ ports.InventoryTx = (*inventoryTx)(nil)

var savepointName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type inventoryTx struct {
	tx      *sql.Tx
	dialect dialect
}

func (t *inventoryTx) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.dialect.rebind(query), args...)
}

func (t *inventoryTx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.rebind(query), args...)
}

func (t *inventoryTx) LockFree(ctx context.Context, resourceType domain.ResourceType, limit int) ([]domain.Resource, error) {
	rows, err := t.query(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE type = ? AND manager_id IS NULL ORDER BY id ASC LIMIT ?`+t.dialect.lockSkip,
		string(resourceType), limit)
	if err != nil {
		return nil, fmt.Errorf("lock free %s: %w", resourceType, err)
	}
	return scanResources(rows)
}

func (t *inventoryTx) ClaimIssued(ctx context.Context, ids []domain.ResourceID, manager domain.ManagerID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}
	clause, idArgs := t.dialect.inIDs("id", raw)

	args := append([]any{int64(manager), encodeTime(at), string(domain.ReceiptNew)}, idArgs...)
	res, err := t.exec(ctx,
		`UPDATE resources SET manager_id = ?, issue_time = ?, receipt_state = ? WHERE `+clause+` AND manager_id IS NULL`,
		args...)
	if err != nil {
		return fmt.Errorf("claim resources: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim resources: %w", err)
	}
	if affected != int64(len(ids)) {
		return fmt.Errorf("%w: claimed %d of %d", domain.ErrAllocationConflict, affected, len(ids))
	}
	return nil
}

func (t *inventoryTx) LockResource(ctx context.Context, id domain.ResourceID) (domain.Resource, error) {
	row := t.tx.QueryRowContext(ctx,
		t.dialect.rebind(`SELECT `+resourceColumns+` FROM resources WHERE id = ?`+t.dialect.lockRow),
		int64(id))
	r, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Resource{}, domain.ErrResourceNotFound
	}
	if err != nil {
		return domain.Resource{}, fmt.Errorf("lock resource %d: %w", id, err)
	}
	return r, nil
}

func (t *inventoryTx) LockStale(ctx context.Context, issuedBefore time.Time) ([]domain.Resource, error) {
	rows, err := t.query(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE manager_id IS NOT NULL AND end_time IS NULL AND issue_time < ? ORDER BY id ASC`+t.dialect.lockSkip,
		encodeTime(issuedBefore))
	if err != nil {
		return nil, fmt.Errorf("lock stale: %w", err)
	}
	return scanResources(rows)
}

func (t *inventoryTx) SetReceipt(ctx context.Context, id domain.ResourceID, state domain.ReceiptState) error {
	if _, err := t.exec(ctx, `UPDATE resources SET receipt_state = ? WHERE id = ?`, nullableString(string(state)), int64(id)); err != nil {
		return fmt.Errorf("set receipt %d: %w", id, err)
	}
	return nil
}

func (t *inventoryTx) CloseResource(ctx context.Context, id domain.ResourceID, end time.Time, lifetimeMinutes int, state domain.ReceiptState) error {
	if _, err := t.exec(ctx,
		`UPDATE resources SET end_time = ?, lifetime_minutes = ?, receipt_state = ? WHERE id = ?`,
		encodeTime(end), lifetimeMinutes, nullableString(string(state)), int64(id)); err != nil {
		return fmt.Errorf("close resource %d: %w", id, err)
	}
	return nil
}

func (t *inventoryTx) InsertResource(ctx context.Context, r domain.NewResource) (domain.ResourceID, bool, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, t.dialect.rebind(
		`INSERT INTO resources (type, login, password, proxy, supplier_id, buy_price, batch_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (type, login) DO NOTHING
		RETURNING id`),
		string(r.Type), r.Login, r.Password, nullableString(r.Proxy), r.SupplierID, priceArg(r.BuyPrice),
		nullableString(r.BatchID), encodeTime(r.CreatedAt),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("insert resource: %w", err)
	}
	return domain.ResourceID(id), true, nil
}

func (t *inventoryTx) AppendHistory(ctx context.Context, e domain.HistoryEntry) error {
	var price any
	if e.Price.Valid {
		price = priceArg(e.Price.Decimal)
	}
	var manager any
	if e.ManagerID != nil {
		manager = int64(*e.ManagerID)
	}

	if _, err := t.exec(ctx,
		`INSERT INTO history (at, resource_id, manager_id, type, supplier_id, price, action, receipt_state, lifetime_minutes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		encodeTime(e.At), int64(e.ResourceID), manager, string(e.Type), e.SupplierID, price,
		string(e.Action), nullableString(string(e.ReceiptState)), e.LifetimeMinutes,
	); err != nil {
		return fmt.Errorf("append history %s for %d: %w", e.Action, e.ResourceID, err)
	}
	return nil
}

func (t *inventoryTx) Savepoint(ctx context.Context, name string) error {
	return t.savepointExec(ctx, "SAVEPOINT ", name)
}

func (t *inventoryTx) RollbackTo(ctx context.Context, name string) error {
	return t.savepointExec(ctx, "ROLLBACK TO SAVEPOINT ", name)
}

func (t *inventoryTx) Release(ctx context.Context, name string) error {
	return t.savepointExec(ctx, "RELEASE SAVEPOINT ", name)
}

func (t *inventoryTx) savepointExec(ctx context.Context, verb string, name string) error {
	if !savepointName.MatchString(name) {
		return fmt.Errorf("invalid savepoint name %q", name)
	}
	if _, err := t.tx.ExecContext(ctx, verb+name); err != nil {
		return fmt.Errorf("%s%s: %w", verb, name, err)
	}
	return nil
}

func priceArg(d decimal.Decimal) string {
	return d.StringFixed(2)
}
