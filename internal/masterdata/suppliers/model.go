package suppliers

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier is a purchasing counterparty. The order counters and the open
// balance are maintained by the purchasing workflow, not this package.
type Supplier struct {
	ID                  int64           `json:"id"`
	Name                string          `json:"name"`
	ContactName         string          `json:"contactName"`
	Email               string          `json:"email"`
	Phone               string          `json:"phone"`
	Address             string          `json:"address"`
	PaymentTerms        string          `json:"paymentTerms"`
	CreditLimit         decimal.Decimal `json:"creditLimit"`
	CurrentBalance      decimal.Decimal `json:"currentBalance"`
	TotalOrders         int64           `json:"totalOrders"`
	TotalPurchaseAmount decimal.Decimal `json:"totalPurchaseAmount"`
	LastOrderDate       *time.Time      `json:"lastOrderDate"`
	IsActive            bool            `json:"isActive"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}
