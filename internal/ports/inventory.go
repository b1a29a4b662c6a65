package ports

import (
	"context"
	"time"

	"github.com/bnema/stockroom/internal/domain"
)

// Inventory is the transactional resource store. Every mutation runs
// inside WithinTx; a non-nil error from fn rolls the whole unit back.
type Inventory interface {
	WithinTx(ctx context.Context, fn func(tx InventoryTx) error) error
	Get(ctx context.Context, id domain.ResourceID) (domain.Resource, error)
	ListIssued(ctx context.Context, manager domain.ManagerID) ([]domain.Resource, error)
	Types(ctx context.Context) ([]domain.ResourceType, error)
	History(ctx context.Context, id domain.ResourceID) ([]domain.HistoryEntry, error)
}

type InventoryTx interface {
	// LockFree returns up to limit free resources of one type in id order,
	// skipping rows another transaction holds.
	LockFree(ctx context.Context, resourceType domain.ResourceType, limit int) ([]domain.Resource, error)
	// ClaimIssued fails with domain.ErrAllocationConflict unless every id
	// was still free.
	ClaimIssued(ctx context.Context, ids []domain.ResourceID, manager domain.ManagerID, at time.Time) error
	LockResource(ctx context.Context, id domain.ResourceID) (domain.Resource, error)
	LockStale(ctx context.Context, issuedBefore time.Time) ([]domain.Resource, error)
	SetReceipt(ctx context.Context, id domain.ResourceID, state domain.ReceiptState) error
	CloseResource(ctx context.Context, id domain.ResourceID, end time.Time, lifetimeMinutes int, state domain.ReceiptState) error
	// InsertResource reports inserted=false when (type, login) already exists.
	InsertResource(ctx context.Context, resource domain.NewResource) (id domain.ResourceID, inserted bool, err error)
	AppendHistory(ctx context.Context, entry domain.HistoryEntry) error
	Savepoint(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error
}

type ReportQueries interface {
	FreeByType(ctx context.Context) ([]domain.TypeCount, error)
	ResourceTotals(ctx context.Context, window domain.Window) (domain.ResourceTotals, error)
	PurchaseTotals(ctx context.Context, window domain.Window) (domain.PurchaseTotals, error)
	IssuedByType(ctx context.Context, window domain.Window) ([]domain.TypeCount, error)
}
