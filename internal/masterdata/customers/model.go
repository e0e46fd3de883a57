package customers

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer groups used for pricing and reporting.
const (
	GroupRegular   = "regular"
	GroupVIP       = "vip"
	GroupWholesale = "wholesale"
	GroupRetail    = "retail"
)

// Customer is a sales counterparty. The order counters and the open credit
// balance are maintained by the sales workflow, not this package.
type Customer struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	ContactName      string          `json:"contactName"`
	Email            string          `json:"email"`
	Phone            string          `json:"phone"`
	Address          string          `json:"address"`
	Group            string          `json:"group"`
	PaymentTerms     string          `json:"paymentTerms"`
	CreditLimit      decimal.Decimal `json:"creditLimit"`
	CurrentBalance   decimal.Decimal `json:"currentBalance"`
	TotalOrders      int64           `json:"totalOrders"`
	TotalSalesAmount decimal.Decimal `json:"totalSalesAmount"`
	LastOrderDate    *time.Time      `json:"lastOrderDate"`
	IsActive         bool            `json:"isActive"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}
