package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

type lineRequest struct {
	ProductID  int64           `json:"productId" validate:"required,gt=0"`
	Quantity   int64           `json:"quantity" validate:"required,gt=0"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Discount   decimal.Decimal `json:"discount"`
	Tax        decimal.Decimal `json:"tax"`
	LocationID *int64          `json:"locationId" validate:"omitempty,gt=0"`
}

type invoiceRequest struct {
	CustomerID   int64           `json:"customerId" validate:"required,gt=0"`
	SaleDate     *time.Time      `json:"saleDate"`
	Status       string          `json:"status" validate:"omitempty,oneof=draft confirmed"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	Notes        string          `json:"notes"`
	Lines        []lineRequest   `json:"lines" validate:"required,min=1,dive"`
}

func (r invoiceRequest) toInput(actorID int64) CreateInput {
	in := CreateInput{
		CustomerID:   r.CustomerID,
		Status:       Status(r.Status),
		ShippingCost: r.ShippingCost,
		Notes:        r.Notes,
		CreatedBy:    actorID,
	}
	if r.SaleDate != nil {
		in.SaleDate = *r.SaleDate
	}
	for _, l := range r.Lines {
		in.Lines = append(in.Lines, LineInput{
			ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice,
			Discount: l.Discount, Tax: l.Tax, LocationID: l.LocationID,
		})
	}
	return in
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type paymentRequest struct {
	Status     string          `json:"status" validate:"required,oneof=unpaid partially_paid paid"`
	PaidAmount decimal.Decimal `json:"paidAmount"`
}

// InvoiceResponse bundles the header with its lines.
type InvoiceResponse struct {
	Invoice
	Lines []Line `json:"lines"`
}
