package stock

import (
	"github.com/shopspring/decimal"

	"github.com/tradewind-erp/tradewind/internal/ledger"
)

type movementRequest struct {
	ProductID      int64             `json:"productId" validate:"required,gt=0"`
	Type           string            `json:"type" validate:"required,oneof=in out adjustment"`
	Reason         string            `json:"reason" validate:"required"`
	Quantity       int64             `json:"quantity" validate:"gte=0"`
	FromLocationID *int64            `json:"fromLocationId" validate:"omitempty,gt=0"`
	ToLocationID   *int64            `json:"toLocationId" validate:"omitempty,gt=0"`
	UnitCost       decimal.Decimal   `json:"unitCost"`
	Reference      *ledger.Reference `json:"reference"`
	Notes          string            `json:"notes"`
}

func (r movementRequest) toInput(performedBy int64) MovementInput {
	return MovementInput{
		ProductID:      r.ProductID,
		Type:           ledger.MovementType(r.Type),
		Reason:         ledger.MovementReason(r.Reason),
		Quantity:       r.Quantity,
		FromLocationID: r.FromLocationID,
		ToLocationID:   r.ToLocationID,
		UnitCost:       r.UnitCost,
		Reference:      r.Reference,
		PerformedBy:    performedBy,
		Notes:          r.Notes,
	}
}

type transferRequest struct {
	ProductID      int64  `json:"productId" validate:"required,gt=0"`
	FromLocationID int64  `json:"fromLocationId" validate:"required,gt=0"`
	ToLocationID   int64  `json:"toLocationId" validate:"required,gt=0"`
	Quantity       int64  `json:"quantity" validate:"required,gt=0"`
	Notes          string `json:"notes"`
}

// LevelResponse is one row of the per-location breakdown.
type LevelResponse struct {
	LocationID int64 `json:"locationId"`
	Quantity   int64 `json:"quantity"`
}
