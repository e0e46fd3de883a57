package products

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradewind-erp/tradewind/internal/stock"
)

type createRequest struct {
	SKU          string          `json:"sku" validate:"required,max=64"`
	Barcode      *string         `json:"barcode" validate:"omitempty,max=64"`
	Name         string          `json:"name" validate:"required,max=255"`
	Description  string          `json:"description"`
	CategoryID   *int64          `json:"categoryId" validate:"omitempty,gt=0"`
	SupplierID   *int64          `json:"supplierId" validate:"omitempty,gt=0"`
	Unit         string          `json:"unit" validate:"max=32"`
	CostPrice    decimal.Decimal `json:"costPrice"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
	MinimumStock int64           `json:"minimumStock" validate:"gte=0"`
	IsPerishable bool            `json:"isPerishable"`
	ExpiryDate   *time.Time      `json:"expiryDate"`
}

type updateRequest struct {
	createRequest
	IsActive bool `json:"isActive"`
}

func (r createRequest) toProduct() Product {
	return Product{
		SKU:          r.SKU,
		Barcode:      r.Barcode,
		Name:         r.Name,
		Description:  r.Description,
		CategoryID:   r.CategoryID,
		SupplierID:   r.SupplierID,
		Unit:         r.Unit,
		CostPrice:    r.CostPrice,
		SellingPrice: r.SellingPrice,
		MinimumStock: r.MinimumStock,
		IsPerishable: r.IsPerishable,
		ExpiryDate:   r.ExpiryDate,
	}
}

// Response is a product with the fields derived on read: stock status and
// the profit of one unit, both as an absolute amount and a margin percent.
type Response struct {
	Product
	Status       stock.Status    `json:"status"`
	ProfitFlat   decimal.Decimal `json:"profitFlat"`
	ProfitMargin decimal.Decimal `json:"profitMargin"`
}

var hundred = decimal.NewFromInt(100)

// NewResponse derives the computed fields.
func NewResponse(p Product) Response {
	flat := p.SellingPrice.Sub(p.CostPrice)
	margin := decimal.Zero
	if p.SellingPrice.IsPositive() {
		margin = flat.Div(p.SellingPrice).Mul(hundred).Round(2)
	}
	return Response{
		Product:      p,
		Status:       stock.StatusOf(p.CurrentStock, p.MinimumStock),
		ProfitFlat:   flat,
		ProfitMargin: margin,
	}
}

func newResponses(items []Product) []Response {
	out := make([]Response, 0, len(items))
	for _, p := range items {
		out = append(out, NewResponse(p))
	}
	return out
}
