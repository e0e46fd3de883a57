package sales

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the sales invoice lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
	StatusReturned  Status = "returned"
)

// Active reports whether the invoice holds stock and counts toward customer
// totals. Draft invoices have not touched stock yet; cancelled and returned
// ones have been compensated.
func (s Status) Active() bool {
	return s == StatusConfirmed || s == StatusShipped || s == StatusDelivered
}

var manualTransitions = map[Status][]Status{
	StatusDraft:     {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered, StatusReturned},
	StatusDelivered: {StatusReturned},
}

// CanTransition reports whether from may be changed to to.
func CanTransition(from, to Status) bool {
	for _, next := range manualTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PaymentTerms determines the due date relative to the sale date.
type PaymentTerms string

const (
	TermsCash  PaymentTerms = "cash"
	TermsNet7  PaymentTerms = "net_7"
	TermsNet15 PaymentTerms = "net_15"
	TermsNet30 PaymentTerms = "net_30"
)

// netDays parses a net_N term into its day count.
func (t PaymentTerms) netDays() (int, bool) {
	rest, ok := strings.CutPrefix(string(t), "net_")
	if !ok {
		return 0, false
	}
	days, err := strconv.Atoi(rest)
	if err != nil || days <= 0 {
		return 0, false
	}
	return days, true
}

// DueDate computes the payment due date. Cash sales have none.
func (t PaymentTerms) DueDate(saleDate time.Time) *time.Time {
	days, ok := t.netDays()
	if !ok {
		return nil
	}
	due := saleDate.AddDate(0, 0, days)
	return &due
}

// ValidTerms reports whether t is a known payment term: cash or any net_N
// with a positive day count.
func ValidTerms(t PaymentTerms) bool {
	if t == TermsCash {
		return true
	}
	_, ok := t.netDays()
	return ok
}

// PaymentStatus tracks invoice settlement.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partially_paid"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
)

// ValidPaymentStatus reports whether callers may set s directly. overdue is
// only assigned by the sweep.
func ValidPaymentStatus(s PaymentStatus) bool {
	return s == PaymentUnpaid || s == PaymentPartial || s == PaymentPaid
}

// Invoice is the sales invoice header. TotalDiscount and TotalTax are summed
// from the lines; TotalAmount = Subtotal - TotalDiscount + TotalTax +
// ShippingCost.
type Invoice struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	CustomerID    int64           `json:"customerId"`
	Status        Status          `json:"status"`
	SaleDate      time.Time       `json:"saleDate"`
	PaymentTerms  PaymentTerms    `json:"paymentTerms"`
	DueDate       *time.Time      `json:"dueDate"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
	TotalTax      decimal.Decimal `json:"totalTax"`
	ShippingCost  decimal.Decimal `json:"shippingCost"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	Notes         string          `json:"notes"`
	CreatedBy     int64           `json:"createdBy"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Line is one sold product. Discount and Tax are absolute amounts for the
// whole line. LocationID optionally pins the location stock ships from.
type Line struct {
	ID             int64           `json:"id"`
	SalesInvoiceID int64           `json:"salesInvoiceId"`
	ProductID      int64           `json:"productId"`
	Quantity       int64           `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	UnitCost       decimal.Decimal `json:"unitCost"`
	Discount       decimal.Decimal `json:"discount"`
	Tax            decimal.Decimal `json:"tax"`
	LineTotal      decimal.Decimal `json:"lineTotal"`
	LocationID     *int64          `json:"locationId"`
}

var (
	ErrNotFound          = errors.New("sales: invoice not found")
	ErrCustomerNotFound  = errors.New("sales: customer not found")
	ErrEmptyLines        = errors.New("sales: at least one line is required")
	ErrNotEditable       = errors.New("sales: invoice can no longer be edited")
	ErrInvalidTransition = errors.New("sales: invalid status transition")
	ErrInvalidPayment    = errors.New("sales: invalid payment update")
	ErrInvalidTerms      = errors.New("sales: unknown payment terms")
)
