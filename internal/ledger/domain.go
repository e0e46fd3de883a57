// Package ledger implements the append-only stock movement ledger. Entries
// are immutable once written; together they form the audit trail that the
// stock engine's aggregate counters must always replay to.
package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// TypeIn represents an inbound movement.
	TypeIn MovementType = "in"
	// TypeOut represents an outbound movement.
	TypeOut MovementType = "out"
	// TypeTransfer moves quantity between locations without changing the aggregate.
	TypeTransfer MovementType = "transfer"
	// TypeAdjustment sets the aggregate to an absolute quantity.
	TypeAdjustment MovementType = "adjustment"
)

// MovementReason explains why a movement happened.
type MovementReason string

const (
	ReasonPurchase      MovementReason = "purchase"
	ReasonSale          MovementReason = "sale"
	ReasonReturn        MovementReason = "return"
	ReasonDamage        MovementReason = "damage"
	ReasonLoss          MovementReason = "loss"
	ReasonTheft         MovementReason = "theft"
	ReasonTransfer      MovementReason = "transfer"
	ReasonAdjustment    MovementReason = "adjustment"
	ReasonOpeningStock  MovementReason = "opening_stock"
	ReasonManufacturing MovementReason = "manufacturing"
)

// ValidReason reports whether the reason is one of the known values.
func ValidReason(r MovementReason) bool {
	switch r {
	case ReasonPurchase, ReasonSale, ReasonReturn, ReasonDamage, ReasonLoss,
		ReasonTheft, ReasonTransfer, ReasonAdjustment, ReasonOpeningStock, ReasonManufacturing:
		return true
	}
	return false
}

// Reference points back to the document that caused a movement.
type Reference struct {
	Kind   string `json:"kind"`
	ID     int64  `json:"id"`
	Number string `json:"number"`
}

// Movement is one immutable ledger entry.
type Movement struct {
	ID             int64           `json:"id"`
	ProductID      int64           `json:"productId"`
	Type           MovementType    `json:"type"`
	Reason         MovementReason  `json:"reason"`
	Quantity       int64           `json:"quantity"`
	PreviousStock  int64           `json:"previousStock"`
	NewStock       int64           `json:"newStock"`
	UnitCost       decimal.Decimal `json:"unitCost"`
	TotalCost      decimal.Decimal `json:"totalCost"`
	FromLocationID *int64          `json:"fromLocationId,omitempty"`
	ToLocationID   *int64          `json:"toLocationId,omitempty"`
	Reference      *Reference      `json:"reference,omitempty"`
	PerformedBy    int64           `json:"performedBy"`
	MovementDate   time.Time       `json:"movementDate"`
	Notes          string          `json:"notes,omitempty"`
}

// Filter narrows ledger reads.
type Filter struct {
	ProductID  int64
	LocationID int64
	Type       MovementType
	Reason     MovementReason
	From       time.Time
	To         time.Time
	Page       int
	Limit      int
}

// GroupBy selects the summary dimension.
type GroupBy string

const (
	GroupByType     GroupBy = "type"
	GroupByReason   GroupBy = "reason"
	GroupByProduct  GroupBy = "product"
	GroupByLocation GroupBy = "location"
	GroupByDay      GroupBy = "day"
)

// SummaryRow aggregates quantity and cost per group key.
type SummaryRow struct {
	Key       string          `json:"key"`
	Movements int64           `json:"movements"`
	Quantity  int64           `json:"quantity"`
	TotalCost decimal.Decimal `json:"totalCost"`
}

// ErrWriteFailed indicates the underlying store rejected a well-formed entry.
// Callers must roll back the paired stock update.
var ErrWriteFailed = errors.New("ledger: write failed")
