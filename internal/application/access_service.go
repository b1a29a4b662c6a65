package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/stockroom/internal/domain"
	"github.com/bnema/stockroom/internal/ports"
)

type AccessService struct {
	managers ports.ManagerDirectory
	clock    ports.Clock
}

func NewAccessService(managers ports.ManagerDirectory, clock ports.Clock) *AccessService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &AccessService{managers: managers, clock: clock}
}

// Resolve turns a chat id into an actor. Unknown ids resolve to an actor
// without a role rather than an error.
func (s *AccessService) Resolve(ctx context.Context, id domain.ManagerID) (domain.Actor, error) {
	manager, err := s.managers.GetByID(ctx, id)
	if errors.Is(err, domain.ErrManagerNotFound) {
		return domain.Actor{ID: id, Role: domain.RoleNone}, nil
	}
	if err != nil {
		return domain.Actor{}, fmt.Errorf("resolve manager %d: %w", id, err)
	}
	return domain.Actor{ID: manager.ID, Role: manager.Role}, nil
}

func (s *AccessService) Register(ctx context.Context, id domain.ManagerID, name string, rawRole string) (domain.Manager, error) {
	role, ok := domain.ParseRole(rawRole)
	if !ok {
		return domain.Manager{}, domain.Reject(domain.ErrForbidden, "unknown role %q: use manager, admin or owner", rawRole)
	}
	if id <= 0 {
		return domain.Manager{}, domain.Reject(domain.ErrManagerNotFound, "manager id must be positive")
	}

	manager := domain.Manager{ID: id, Name: strings.TrimSpace(name), Role: role, CreatedAt: s.clock.Now().UTC()}
	if err := s.managers.Save(ctx, manager); err != nil {
		return domain.Manager{}, fmt.Errorf("save manager: %w", err)
	}
	return manager, nil
}

func (s *AccessService) List(ctx context.Context) ([]domain.Manager, error) {
	managers, err := s.managers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list managers: %w", err)
	}
	return managers, nil
}
