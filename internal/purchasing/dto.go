package purchasing

import (
	"time"

	"github.com/shopspring/decimal"
)

type lineRequest struct {
	ProductID int64           `json:"productId" validate:"required,gt=0"`
	Quantity  int64           `json:"quantity" validate:"required,gt=0"`
	UnitCost  decimal.Decimal `json:"unitCost"`
	Discount  decimal.Decimal `json:"discount"`
	Tax       decimal.Decimal `json:"tax"`
}

type orderRequest struct {
	SupplierID   int64           `json:"supplierId" validate:"required,gt=0"`
	OrderDate    *time.Time      `json:"orderDate"`
	ExpectedDate *time.Time      `json:"expectedDate"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	Notes        string          `json:"notes"`
	Lines        []lineRequest   `json:"lines" validate:"required,min=1,dive"`
}

func (r orderRequest) toInput(actorID int64) CreateInput {
	in := CreateInput{
		SupplierID:   r.SupplierID,
		ExpectedDate: r.ExpectedDate,
		ShippingCost: r.ShippingCost,
		Notes:        r.Notes,
		CreatedBy:    actorID,
	}
	if r.OrderDate != nil {
		in.OrderDate = *r.OrderDate
	}
	for _, l := range r.Lines {
		in.Lines = append(in.Lines, LineInput{
			ProductID: l.ProductID, Quantity: l.Quantity,
			UnitCost: l.UnitCost, Discount: l.Discount, Tax: l.Tax,
		})
	}
	return in
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type receiveLineRequest struct {
	LineID     int64  `json:"lineId" validate:"required,gt=0"`
	Quantity   int64  `json:"quantity" validate:"required,gt=0"`
	LocationID *int64 `json:"locationId" validate:"omitempty,gt=0"`
}

type receiveRequest struct {
	Lines []receiveLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type paymentRequest struct {
	Status     string          `json:"status" validate:"required,oneof=unpaid partially_paid paid"`
	PaidAmount decimal.Decimal `json:"paidAmount"`
}

// OrderResponse bundles the header with its lines.
type OrderResponse struct {
	PurchaseOrder
	Lines []Line `json:"lines"`
}
