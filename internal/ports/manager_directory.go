package ports

import (
	"context"

	"github.com/bnema/stockroom/internal/domain"
)

type ManagerDirectory interface {
	GetByID(ctx context.Context, id domain.ManagerID) (domain.Manager, error)
	List(ctx context.Context) ([]domain.Manager, error)
	Save(ctx context.Context, manager domain.Manager) error
}
