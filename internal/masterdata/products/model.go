package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog entry plus its denormalized stock counters. The
// counters are owned by the stock engine; this package only reads them.
type Product struct {
	ID              int64           `json:"id"`
	SKU             string          `json:"sku"`
	Barcode         *string         `json:"barcode"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	CategoryID      *int64          `json:"categoryId"`
	SupplierID      *int64          `json:"supplierId"`
	Unit            string          `json:"unit"`
	CostPrice       decimal.Decimal `json:"costPrice"`
	SellingPrice    decimal.Decimal `json:"sellingPrice"`
	CurrentStock    int64           `json:"currentStock"`
	MinimumStock    int64           `json:"minimumStock"`
	TotalSold       int64           `json:"totalSold"`
	TotalPurchased  int64           `json:"totalPurchased"`
	LastStockUpdate *time.Time      `json:"lastStockUpdate"`
	IsPerishable    bool            `json:"isPerishable"`
	ExpiryDate      *time.Time      `json:"expiryDate"`
	IsActive        bool            `json:"isActive"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
