// Package sqlstore is the relational inventory: resources, their history
// and the manager registry, on PostgreSQL or SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/bnema/stockroom/internal/domain"
	"github.com/bnema/stockroom/internal/ports"
)

var (
	_ ports.Inventory        = (*Store)(nil)
	_ ports.ReportQueries    = (*Store)(nil)
	_ ports.ManagerDirectory = (*Store)(nil)
)

type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects, applies pending migrations and returns a ready store.
// For SQLite the DSN is a file path.
func Open(ctx context.Context, driver string, dsn string) (*Store, error) {
	d, ok := dialectFor(driver)
	if !ok {
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	if d.driver == DriverSQLite {
		path := strings.TrimPrefix(dsn, "file:")
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)"
		}
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	store, err := New(db, d.driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

// New wraps an existing handle without migrating it.
func New(db *sql.DB, driver string) (*Store, error) {
	d, ok := dialectFor(driver)
	if !ok {
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
	if d.driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return &Store{db: db, dialect: d}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Driver() string {
	return s.dialect.driver
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx ports.InventoryTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&inventoryTx{tx: tx, dialect: s.dialect}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) queryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) queryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

const resourceColumns = `id, type, login, password, proxy, supplier_id, buy_price, batch_id, manager_id, issue_time, receipt_state, lifetime_minutes, end_time, created_at`

const historyColumns = `id, at, resource_id, manager_id, type, supplier_id, price, action, receipt_state, lifetime_minutes`

type scanner interface {
	Scan(dest ...any) error
}

func scanResource(row scanner) (domain.Resource, error) {
	var (
		r          domain.Resource
		proxy      sql.NullString
		supplierID sql.NullInt64
		batchID    sql.NullString
		managerID  sql.NullInt64
		issueTime  timestamp
		receipt    sql.NullString
		lifetime   sql.NullInt64
		endTime    timestamp
		createdAt  timestamp
	)
	if err := row.Scan(&r.ID, &r.Type, &r.Login, &r.Password, &proxy, &supplierID, &r.BuyPrice, &batchID,
		&managerID, &issueTime, &receipt, &lifetime, &endTime, &createdAt); err != nil {
		return domain.Resource{}, err
	}

	r.Proxy = proxy.String
	r.BatchID = batchID.String
	r.ReceiptState = domain.ReceiptState(receipt.String)
	r.IssueTime = issueTime.ptr()
	r.EndTime = endTime.ptr()
	r.CreatedAt = createdAt.Time
	if supplierID.Valid {
		id := supplierID.Int64
		r.SupplierID = &id
	}
	if managerID.Valid {
		id := domain.ManagerID(managerID.Int64)
		r.ManagerID = &id
	}
	if lifetime.Valid {
		minutes := int(lifetime.Int64)
		r.LifetimeMinutes = &minutes
	}
	return r, nil
}

func scanResources(rows *sql.Rows) ([]domain.Resource, error) {
	defer rows.Close()

	out := make([]domain.Resource, 0)
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanHistory(row scanner) (domain.HistoryEntry, error) {
	var (
		e          domain.HistoryEntry
		at         timestamp
		managerID  sql.NullInt64
		supplierID sql.NullInt64
		receipt    sql.NullString
		lifetime   sql.NullInt64
	)
	if err := row.Scan(&e.ID, &at, &e.ResourceID, &managerID, &e.Type, &supplierID, &e.Price, &e.Action,
		&receipt, &lifetime); err != nil {
		return domain.HistoryEntry{}, err
	}

	e.At = at.Time
	e.ReceiptState = domain.ReceiptState(receipt.String)
	if managerID.Valid {
		id := domain.ManagerID(managerID.Int64)
		e.ManagerID = &id
	}
	if supplierID.Valid {
		id := supplierID.Int64
		e.SupplierID = &id
	}
	if lifetime.Valid {
		minutes := int(lifetime.Int64)
		e.LifetimeMinutes = &minutes
	}
	return e, nil
}
