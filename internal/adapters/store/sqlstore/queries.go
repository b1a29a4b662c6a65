package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bnema/stockroom/internal/domain"
)

func (s *Store) Get(ctx context.Context, id domain.ResourceID) (domain.Resource, error) {
	r, err := scanResource(s.queryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = ?`, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Resource{}, domain.ErrResourceNotFound
	}
	if err != nil {
		return domain.Resource{}, fmt.Errorf("get resource %d: %w", id, err)
	}
	return r, nil
}

// ListIssued returns a manager's open resources, hiding the ones already
// reported as defective.
func (s *Store) ListIssued(ctx context.Context, manager domain.ManagerID) ([]domain.Resource, error) {
	rows, err := s.queryContext(ctx,
		`SELECT `+resourceColumns+` FROM resources
		WHERE manager_id = ? AND end_time IS NULL
		AND (receipt_state IS NULL OR receipt_state NOT IN ('bad', 'blocked', 'error'))
		ORDER BY issue_time ASC, id ASC`,
		int64(manager))
	if err != nil {
		return nil, fmt.Errorf("list issued: %w", err)
	}
	return scanResources(rows)
}

func (s *Store) Types(ctx context.Context) ([]domain.ResourceType, error) {
	rows, err := s.queryContext(ctx, `SELECT DISTINCT type FROM resources ORDER BY type ASC`)
	if err != nil {
		return nil, fmt.Errorf("list types: %w", err)
	}
	defer rows.Close()

	types := make([]domain.ResourceType, 0)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan type: %w", err)
		}
		types = append(types, domain.ResourceType(t))
	}
	return types, rows.Err()
}

func (s *Store) History(ctx context.Context, id domain.ResourceID) ([]domain.HistoryEntry, error) {
	rows, err := s.queryContext(ctx, `SELECT `+historyColumns+` FROM history WHERE resource_id = ? ORDER BY id ASC`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("list history %d: %w", id, err)
	}
	defer rows.Close()

	entries := make([]domain.HistoryEntry, 0)
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) FreeByType(ctx context.Context) ([]domain.TypeCount, error) {
	return s.typeCounts(ctx, `SELECT type, COUNT(*) FROM resources WHERE manager_id IS NULL GROUP BY type ORDER BY type ASC`)
}

func (s *Store) IssuedByType(ctx context.Context, window domain.Window) ([]domain.TypeCount, error) {
	return s.typeCounts(ctx,
		`SELECT type, COUNT(*) FROM history WHERE action = ? AND at >= ? AND at < ? GROUP BY type ORDER BY type ASC`,
		string(domain.ActionIssue), encodeTime(window.From), encodeTime(window.To))
}

func (s *Store) typeCounts(ctx context.Context, query string, args ...any) ([]domain.TypeCount, error) {
	rows, err := s.queryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count by type: %w", err)
	}
	defer rows.Close()

	counts := make([]domain.TypeCount, 0)
	for rows.Next() {
		var (
			t     string
			count int
		)
		if err := rows.Scan(&t, &count); err != nil {
			return nil, fmt.Errorf("scan type count: %w", err)
		}
		counts = append(counts, domain.TypeCount{Type: domain.ResourceType(t), Count: count})
	}
	return counts, rows.Err()
}

func (s *Store) ResourceTotals(ctx context.Context, window domain.Window) (domain.ResourceTotals, error) {
	from, to := encodeTime(window.From), encodeTime(window.To)

	var totals domain.ResourceTotals
	err := s.queryRowContext(ctx,
		`SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN manager_id IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN manager_id IS NOT NULL AND end_time IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN end_time IS NOT NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN issue_time >= ? AND issue_time < ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN end_time >= ? AND end_time < ? THEN 1 ELSE 0 END), 0)
		FROM resources`,
		from, to, from, to,
	).Scan(&totals.Total, &totals.Free, &totals.Issued, &totals.Closed, &totals.IssuedInWindow, &totals.ClosedInWindow)
	if err != nil {
		return domain.ResourceTotals{}, fmt.Errorf("resource totals: %w", err)
	}
	return totals, nil
}

func (s *Store) PurchaseTotals(ctx context.Context, window domain.Window) (domain.PurchaseTotals, error) {
	var (
		totals domain.PurchaseTotals
		spent  decimal.Decimal
	)
	err := s.queryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(price), 0) FROM history WHERE action = ? AND at >= ? AND at < ?`,
		string(domain.ActionPurchase), encodeTime(window.From), encodeTime(window.To),
	).Scan(&totals.Count, &spent)
	if err != nil {
		return domain.PurchaseTotals{}, fmt.Errorf("purchase totals: %w", err)
	}
	totals.Spent = spent.Round(2)
	return totals, nil
}
