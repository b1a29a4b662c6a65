package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bnema/stockroom/internal/domain"
	"github.com/bnema/stockroom/internal/ports"
)

const (
	DefaultMaxPerRequest = 10
	claimAttempts        = 3
)

type AllocationService struct {
	inventory     ports.Inventory
	clock         ports.Clock
	maxPerRequest int
	logger        zerolog.Logger
}

func NewAllocationService(inventory ports.Inventory, clock ports.Clock, maxPerRequest int, logger zerolog.Logger) *AllocationService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if maxPerRequest <= 0 {
		maxPerRequest = DefaultMaxPerRequest
	}

	return &AllocationService{inventory: inventory, clock: clock, maxPerRequest: maxPerRequest, logger: logger}
}

func (s *AllocationService) MaxPerRequest() int {
	return s.maxPerRequest
}

// Allocate issues up to count free resources of one type to the actor.
// Fewer than count, including none, is a normal result.
func (s *AllocationService) Allocate(ctx context.Context, actor domain.Actor, resourceType domain.ResourceType, count int) ([]domain.Resource, error) {
	if err := actor.Require(domain.CapabilityIssue); err != nil {
		return nil, err
	}
	resourceType = domain.NormalizeType(string(resourceType))
	if resourceType == "" {
		return nil, domain.Reject(domain.ErrEmptyType, "resource type is required")
	}
	if count < 1 || count > s.maxPerRequest {
		return nil, domain.Reject(domain.ErrInvalidQuantity, "quantity must be between 1 and %d, got %d", s.maxPerRequest, count)
	}

	var (
		issued []domain.Resource
		err    error
	)
	for attempt := 1; attempt <= claimAttempts; attempt++ {
		issued, err = s.allocateOnce(ctx, actor, resourceType, count)
		if !errors.Is(err, domain.ErrAllocationConflict) {
			break
		}
		s.logger.Warn().Int("attempt", attempt).Str("type", string(resourceType)).Msg("allocation conflict, retrying")
	}
	if err != nil {
		return nil, fmt.Errorf("allocate %s: %w", resourceType, err)
	}

	s.logger.Info().
		Int64("manager_id", int64(actor.ID)).
		Str("type", string(resourceType)).
		Int("requested", count).
		Int("issued", len(issued)).
		Msg("resources issued")
	return issued, nil
}

func (s *AllocationService) allocateOnce(ctx context.Context, actor domain.Actor, resourceType domain.ResourceType, count int) ([]domain.Resource, error) {
	now := s.clock.Now().UTC()
	var issued []domain.Resource

	err := s.inventory.WithinTx(ctx, func(tx ports.InventoryTx) error {
		free, err := tx.LockFree(ctx, resourceType, count)
		if err != nil {
			return err
		}
		if len(free) == 0 {
			return nil
		}

		ids := make([]domain.ResourceID, 0, len(free))
		for _, r := range free {
			ids = append(ids, r.ID)
		}
		if err := tx.ClaimIssued(ctx, ids, actor.ID, now); err != nil {
			return err
		}

		manager := actor.ID
		claimed := make([]domain.Resource, 0, len(free))
		for _, r := range free {
			r.ManagerID = &manager
			r.IssueTime = &now
			r.ReceiptState = domain.ReceiptNew
			if err := tx.AppendHistory(ctx, domain.HistoryEntry{
				At:           now,
				ResourceID:   r.ID,
				ManagerID:    &manager,
				Type:         r.Type,
				SupplierID:   r.SupplierID,
				Price:        decimal.NewNullDecimal(r.BuyPrice),
				Action:       domain.ActionIssue,
				ReceiptState: domain.ReceiptNew,
			}); err != nil {
				return err
			}
			claimed = append(claimed, r)
		}
		issued = claimed
		return nil
	})
	if err != nil {
		return nil, err
	}
	if issued == nil {
		issued = []domain.Resource{}
	}
	return issued, nil
}
