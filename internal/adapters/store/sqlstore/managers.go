package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bnema/stockroom/internal/domain"
)

func (s *Store) GetByID(ctx context.Context, id domain.ManagerID) (domain.Manager, error) {
	var (
		m         domain.Manager
		createdAt timestamp
	)
	err := s.queryRowContext(ctx, `SELECT tg_id, name, role, created_at FROM managers WHERE tg_id = ?`, int64(id)).
		Scan(&m.ID, &m.Name, &m.Role, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Manager{}, domain.ErrManagerNotFound
	}
	if err != nil {
		return domain.Manager{}, fmt.Errorf("get manager %d: %w", id, err)
	}
	m.CreatedAt = createdAt.Time
	return m, nil
}

func (s *Store) List(ctx context.Context) ([]domain.Manager, error) {
	rows, err := s.queryContext(ctx, `SELECT tg_id, name, role, created_at FROM managers ORDER BY tg_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list managers: %w", err)
	}
	defer rows.Close()

	managers := make([]domain.Manager, 0)
	for rows.Next() {
		var (
			m         domain.Manager
			createdAt timestamp
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.Role, &createdAt); err != nil {
			return nil, fmt.Errorf("scan manager: %w", err)
		}
		m.CreatedAt = createdAt.Time
		managers = append(managers, m)
	}
	return managers, rows.Err()
}

// Save inserts or updates a manager; created_at keeps its first value.
func (s *Store) Save(ctx context.Context, m domain.Manager) error {
	if _, err := s.execContext(ctx,
		`INSERT INTO managers (tg_id, name, role, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (tg_id) DO UPDATE SET name = excluded.name, role = excluded.role`,
		int64(m.ID), m.Name, string(m.Role), encodeTime(m.CreatedAt),
	); err != nil {
		return fmt.Errorf("save manager %d: %w", m.ID, err)
	}
	return nil
}
