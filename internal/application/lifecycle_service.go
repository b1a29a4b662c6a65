package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bnema/stockroom/internal/domain"
	"github.com/bnema/stockroom/internal/ports"
)

const DefaultMaxHold = 72 * time.Hour

type LifecycleService struct {
	inventory ports.Inventory
	clock     ports.Clock
	maxHold   time.Duration
	logger    zerolog.Logger
}

func NewLifecycleService(inventory ports.Inventory, clock ports.Clock, maxHold time.Duration, logger zerolog.Logger) *LifecycleService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if maxHold <= 0 {
		maxHold = DefaultMaxHold
	}

	return &LifecycleService{inventory: inventory, clock: clock, maxHold: maxHold, logger: logger}
}

// Issued lists the actor's open resources that were not reported defective.
func (s *LifecycleService) Issued(ctx context.Context, actor domain.Actor) ([]domain.Resource, error) {
	if err := actor.Require(domain.CapabilityIssue); err != nil {
		return nil, err
	}

	resources, err := s.inventory.ListIssued(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list issued: %w", err)
	}
	return resources, nil
}

// lockOwned loads a resource under lock and checks the actor may still act
// on it.
func lockOwned(ctx context.Context, tx ports.InventoryTx, actor domain.Actor, id domain.ResourceID) (domain.Resource, error) {
	r, err := tx.LockResource(ctx, id)
	if errors.Is(err, domain.ErrResourceNotFound) {
		return domain.Resource{}, domain.Reject(domain.ErrResourceNotFound, "resource %d not found", id)
	}
	if err != nil {
		return domain.Resource{}, err
	}
	if !r.IssuedTo(actor.ID) {
		return domain.Resource{}, domain.Reject(domain.ErrNotOwner, "resource %d is not issued to you", id)
	}
	if r.IsClosed() {
		return domain.Resource{}, domain.Reject(domain.ErrResourceClosed, "resource %d is already closed", id)
	}
	return r, nil
}

// MarkStatus records the receipt verdict once. A resource that already
// carries a verdict is left untouched.
func (s *LifecycleService) MarkStatus(ctx context.Context, actor domain.Actor, id domain.ResourceID, verdict domain.Verdict) (domain.Resource, error) {
	if err := actor.Require(domain.CapabilityEvaluate); err != nil {
		return domain.Resource{}, err
	}
	verdict, err := domain.ParseVerdict(string(verdict))
	if err != nil {
		return domain.Resource{}, err
	}

	now := s.clock.Now().UTC()
	var updated domain.Resource
	err = s.inventory.WithinTx(ctx, func(tx ports.InventoryTx) error {
		r, err := lockOwned(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if !r.ReceiptState.Unmarked() {
			return domain.Reject(domain.ErrAlreadyMarked, "resource %d is already marked %s", id, r.ReceiptState)
		}

		state := verdict.ReceiptState()
		if err := tx.SetReceipt(ctx, id, state); err != nil {
			return err
		}
		manager := actor.ID
		if err := tx.AppendHistory(ctx, domain.HistoryEntry{
			At:           now,
			ResourceID:   id,
			ManagerID:    &manager,
			Type:         r.Type,
			SupplierID:   r.SupplierID,
			Action:       verdict.Action(),
			ReceiptState: state,
		}); err != nil {
			return err
		}

		r.ReceiptState = state
		updated = r
		return nil
	})
	if err != nil {
		return domain.Resource{}, wrapUnlessRejected(err, "mark resource %d", id)
	}

	s.logger.Info().Int64("manager_id", int64(actor.ID)).Int64("resource_id", int64(id)).Str("verdict", string(verdict)).Msg("receipt marked")
	return updated, nil
}

// SetLifetime closes an issued resource. Positive minutes fix the end
// relative to issue; 0 and -1 close it now with the elapsed minutes.
func (s *LifecycleService) SetLifetime(ctx context.Context, actor domain.Actor, id domain.ResourceID, minutes int) (domain.Resource, error) {
	if err := actor.Require(domain.CapabilityEvaluate); err != nil {
		return domain.Resource{}, err
	}
	if err := domain.ValidateLifetime(minutes); err != nil {
		return domain.Resource{}, err
	}

	now := s.clock.Now().UTC()
	var updated domain.Resource
	err := s.inventory.WithinTx(ctx, func(tx ports.InventoryTx) error {
		r, err := lockOwned(ctx, tx, actor, id)
		if err != nil {
			return err
		}

		issued := now
		if r.IssueTime != nil {
			issued = *r.IssueTime
		}
		end, lifetime := domain.CloseAt(issued, minutes, now)

		state := r.ReceiptState
		if state.Unmarked() {
			state = domain.ReceiptUsed
		}

		if err := tx.CloseResource(ctx, id, end, lifetime, state); err != nil {
			return err
		}
		manager := actor.ID
		if err := tx.AppendHistory(ctx, domain.HistoryEntry{
			At:              now,
			ResourceID:      id,
			ManagerID:       &manager,
			Type:            r.Type,
			SupplierID:      r.SupplierID,
			Action:          domain.ActionLifetimeSet,
			ReceiptState:    state,
			LifetimeMinutes: &lifetime,
		}); err != nil {
			return err
		}

		r.EndTime = &end
		r.LifetimeMinutes = &lifetime
		r.ReceiptState = state
		updated = r
		return nil
	})
	if err != nil {
		return domain.Resource{}, wrapUnlessRejected(err, "set lifetime %d", id)
	}

	s.logger.Info().Int64("manager_id", int64(actor.ID)).Int64("resource_id", int64(id)).Int("lifetime_minutes", *updated.LifetimeMinutes).Msg("lifetime set")
	return updated, nil
}

// ExpireStale closes every resource held longer than the configured
// maximum and returns the ids it closed.
func (s *LifecycleService) ExpireStale(ctx context.Context, actor domain.Actor) ([]domain.ResourceID, error) {
	if err := actor.Require(domain.CapabilitySweep); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	cutoff := now.Add(-s.maxHold)
	var expired []domain.ResourceID
	err := s.inventory.WithinTx(ctx, func(tx ports.InventoryTx) error {
		stale, err := tx.LockStale(ctx, cutoff)
		if err != nil {
			return err
		}

		closed := make([]domain.ResourceID, 0, len(stale))
		for _, r := range stale {
			lifetime := 0
			if r.IssueTime != nil {
				lifetime = domain.ElapsedMinutes(*r.IssueTime, now)
			}
			if err := tx.CloseResource(ctx, r.ID, now, lifetime, r.ReceiptState); err != nil {
				return err
			}
			if err := tx.AppendHistory(ctx, domain.HistoryEntry{
				At:              now,
				ResourceID:      r.ID,
				ManagerID:       r.ManagerID,
				Type:            r.Type,
				SupplierID:      r.SupplierID,
				Action:          domain.ActionExpired,
				ReceiptState:    r.ReceiptState,
				LifetimeMinutes: &lifetime,
			}); err != nil {
				return err
			}
			closed = append(closed, r.ID)
		}
		expired = closed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("expire stale: %w", err)
	}

	s.logger.Info().Int("expired", len(expired)).Time("cutoff", cutoff).Msg("stale resources expired")
	return expired, nil
}

func wrapUnlessRejected(err error, format string, args ...any) error {
	if domain.IsRejection(err) {
		return err
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// History returns the audit trail of one resource. Report holders see any
// resource; everyone else only what was issued to them.
func (s *LifecycleService) History(ctx context.Context, actor domain.Actor, id domain.ResourceID) ([]domain.HistoryEntry, error) {
	if err := actor.Require(domain.CapabilityIssue); err != nil {
		return nil, err
	}

	r, err := s.inventory.Get(ctx, id)
	if errors.Is(err, domain.ErrResourceNotFound) {
		return nil, domain.Reject(domain.ErrResourceNotFound, "resource %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load resource %d: %w", id, err)
	}
	if !actor.Role.Can(domain.CapabilityReport) && !r.IssuedTo(actor.ID) {
		return nil, domain.Reject(domain.ErrNotOwner, "resource %d is not issued to you", id)
	}

	entries, err := s.inventory.History(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load history %d: %w", id, err)
	}
	return entries, nil
}
