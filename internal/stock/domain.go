// Package stock owns the authoritative stock state: the per-product aggregate
// quantity, its per-location breakdown, and the single apply-movement
// primitive every mutation funnels through.
package stock

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradewind-erp/tradewind/internal/ledger"
)

// ProductState is the slice of a product the engine reads and writes.
type ProductState struct {
	ID              int64
	SKU             string
	Name            string
	CurrentStock    int64
	MinimumStock    int64
	CostPrice       decimal.Decimal
	TotalSold       int64
	TotalPurchased  int64
	LastStockUpdate time.Time
}

// Level is one per-location stock bucket. Rows with zero quantity are removed.
type Level struct {
	LocationID int64 `json:"locationId"`
	Quantity   int64 `json:"quantity"`
}

// Status derives the product's stock status.
type Status string

const (
	StatusOutOfStock Status = "out_of_stock"
	StatusLowStock   Status = "low_stock"
	StatusInStock    Status = "in_stock"
)

// StatusOf computes the stock status from aggregate and threshold.
func StatusOf(currentStock, minimumStock int64) Status {
	switch {
	case currentStock == 0:
		return StatusOutOfStock
	case currentStock <= minimumStock:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// MovementInput describes one requested stock change.
type MovementInput struct {
	ProductID      int64
	Type           ledger.MovementType
	Reason         ledger.MovementReason
	Quantity       int64
	FromLocationID *int64
	ToLocationID   *int64
	UnitCost       decimal.Decimal
	Reference      *ledger.Reference
	PerformedBy    int64
	Notes          string
}

var (
	// ErrProductNotFound indicates the product does not exist or is inactive.
	ErrProductNotFound = errors.New("stock: product not found")
	// ErrLocationNotFound indicates a referenced location does not exist.
	ErrLocationNotFound = errors.New("stock: location not found")
	// ErrInvalidLocationPair is returned for transfers where source equals destination.
	ErrInvalidLocationPair = errors.New("stock: source and destination location must differ")
	// ErrInvalidQuantity indicates a non-positive quantity where a positive one is required.
	ErrInvalidQuantity = errors.New("stock: quantity must be positive")
	// ErrUnknownMovementType indicates an unrecognised movement type.
	ErrUnknownMovementType = errors.New("stock: unknown movement type")
	// ErrAmbiguousAdjustment is returned when an absolute adjustment cannot be
	// distributed over multiple location buckets.
	ErrAmbiguousAdjustment = errors.New("stock: adjustment requires single-bucket stock")
	// ErrLocationRequired is returned when an in or out movement omits the
	// location on a product whose stock is split across multiple locations.
	ErrLocationRequired = errors.New("stock: movement requires a location when stock is split across locations")
	// ErrLocationNotAllowed is returned when a movement carries a location
	// its type does not accept.
	ErrLocationNotAllowed = errors.New("stock: movement type does not accept this location")
)

// InsufficientStockError reports how much was available versus requested.
type InsufficientStockError struct {
	ProductID int64 `json:"productId"`
	Available int64 `json:"available"`
	Requested int64 `json:"requested"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock: insufficient stock for product %d: available %d, requested %d", e.ProductID, e.Available, e.Requested)
}

// HTTPStatus maps the error to a 400 at the transport boundary.
func (e *InsufficientStockError) HTTPStatus() int { return 400 }

// ErrorData exposes the quantities in the failure envelope.
func (e *InsufficientStockError) ErrorData() any {
	return map[string]int64{"available": e.Available, "requested": e.Requested}
}

// movementSpec encodes quantity bounds, aggregate effect and location
// requirements per movement type, as data instead of branching.
type movementSpec struct {
	minQuantity   int64
	aggregate     func(current, quantity int64) int64
	allowFrom     bool
	allowTo       bool
	requireBoth   bool
	absoluteLevel bool
}

var movementTable = map[ledger.MovementType]movementSpec{
	ledger.TypeIn: {
		minQuantity: 1,
		aggregate:   func(current, quantity int64) int64 { return current + quantity },
		allowTo:     true,
	},
	ledger.TypeOut: {
		minQuantity: 1,
		aggregate:   func(current, quantity int64) int64 { return current - quantity },
		allowFrom:   true,
	},
	ledger.TypeTransfer: {
		minQuantity: 1,
		aggregate:   func(current, quantity int64) int64 { return current },
		allowFrom:   true,
		allowTo:     true,
		requireBoth: true,
	},
	ledger.TypeAdjustment: {
		minQuantity:   0,
		aggregate:     func(current, quantity int64) int64 { return quantity },
		absoluteLevel: true,
	},
}
