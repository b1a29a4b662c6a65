package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionPurchase      Action = "purchase"
	ActionIssue         Action = "issue"
	ActionStatusGood    Action = "status_good"
	ActionStatusBad     Action = "status_bad"
	ActionStatusWorking Action = "status_working"
	ActionStatusBlocked Action = "status_blocked"
	ActionStatusError   Action = "status_error"
	ActionLifetimeSet   Action = "lifetime_set"
	ActionExpired       Action = "expired"
)

// HistoryEntry is an append-only audit row. ResourceID is a weak reference.
type HistoryEntry struct {
	ID              int64
	At              time.Time
	ResourceID      ResourceID
	ManagerID       *ManagerID
	Type            ResourceType
	SupplierID      *int64
	Price           decimal.NullDecimal
	Action          Action
	ReceiptState    ReceiptState
	LifetimeMinutes *int
}
