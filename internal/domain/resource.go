package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ResourceID int64
type ResourceType string

// NormalizeType folds a type label to its stored form.
func NormalizeType(raw string) ResourceType {
	return ResourceType(strings.ToLower(strings.TrimSpace(raw)))
}

func (t ResourceType) Valid() bool {
	return t != "" && !strings.ContainsAny(string(t), " \t\r\n")
}

type ReceiptState string

const (
	ReceiptNone    ReceiptState = ""
	ReceiptNew     ReceiptState = "new"
	ReceiptGood    ReceiptState = "good"
	ReceiptBad     ReceiptState = "bad"
	ReceiptWorking ReceiptState = "working"
	ReceiptBlocked ReceiptState = "blocked"
	ReceiptError   ReceiptState = "error"
	ReceiptUsed    ReceiptState = "used"
)

// Unmarked reports whether a receipt verdict may still be recorded.
func (s ReceiptState) Unmarked() bool {
	return s == ReceiptNone || s == ReceiptNew
}

// Defective states are hidden from a manager's open list.
func (s ReceiptState) Defective() bool {
	return s == ReceiptBad || s == ReceiptBlocked || s == ReceiptError
}

type Resource struct {
	ID              ResourceID
	Type            ResourceType
	Login           string
	Password        string
	Proxy           string
	SupplierID      *int64
	BuyPrice        decimal.Decimal
	BatchID         string
	ManagerID       *ManagerID
	IssueTime       *time.Time
	ReceiptState    ReceiptState
	LifetimeMinutes *int
	EndTime         *time.Time
	CreatedAt       time.Time
}

func (r Resource) IsFree() bool {
	return r.ManagerID == nil
}

func (r Resource) IsClosed() bool {
	return r.EndTime != nil
}

func (r Resource) IsIssued() bool {
	return r.ManagerID != nil && r.EndTime == nil
}

func (r Resource) IssuedTo(manager ManagerID) bool {
	return r.ManagerID != nil && *r.ManagerID == manager
}

// NewResource is a supplier row about to enter the free pool.
type NewResource struct {
	Type       ResourceType
	Login      string
	Password   string
	Proxy      string
	SupplierID *int64
	BuyPrice   decimal.Decimal
	BatchID    string
	CreatedAt  time.Time
}
