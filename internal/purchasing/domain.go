package purchasing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the purchase order lifecycle state.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusPending           Status = "pending"
	StatusApproved          Status = "approved"
	StatusOrdered           Status = "ordered"
	StatusPartiallyReceived Status = "partially_received"
	StatusReceived          Status = "received"
	StatusCancelled         Status = "cancelled"
)

// Committed reports whether the order counts toward supplier totals.
func (s Status) Committed() bool {
	return s != "" && s != StatusDraft && s != StatusCancelled
}

// manualTransitions lists the status changes callers may request directly.
// partially_received and received are only entered through goods receipt.
var manualTransitions = map[Status][]Status{
	StatusDraft:             {StatusPending, StatusCancelled},
	StatusPending:           {StatusApproved, StatusCancelled},
	StatusApproved:          {StatusOrdered, StatusCancelled},
	StatusOrdered:           {StatusCancelled},
	StatusPartiallyReceived: {StatusCancelled},
	StatusCancelled:         {StatusPending},
}

// CanTransition reports whether from may be manually changed to to.
func CanTransition(from, to Status) bool {
	for _, next := range manualTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PaymentStatus tracks how much of the order has been paid.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partially_paid"
	PaymentPaid    PaymentStatus = "paid"
)

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s PaymentStatus) bool {
	return s == PaymentUnpaid || s == PaymentPartial || s == PaymentPaid
}

// PurchaseOrder is the order header. TotalDiscount and TotalTax are summed
// from the lines; TotalAmount = Subtotal - TotalDiscount + TotalTax +
// ShippingCost.
type PurchaseOrder struct {
	ID             int64           `json:"id"`
	OrderNumber    string          `json:"orderNumber"`
	SupplierID     int64           `json:"supplierId"`
	Status         Status          `json:"status"`
	OrderDate      time.Time       `json:"orderDate"`
	ExpectedDate   *time.Time      `json:"expectedDate"`
	ActualDelivery *time.Time      `json:"actualDeliveryDate"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TotalDiscount  decimal.Decimal `json:"totalDiscount"`
	TotalTax       decimal.Decimal `json:"totalTax"`
	ShippingCost   decimal.Decimal `json:"shippingCost"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	PaymentStatus  PaymentStatus   `json:"paymentStatus"`
	PaidAmount     decimal.Decimal `json:"paidAmount"`
	ApprovedBy     *int64          `json:"approvedBy"`
	ApprovedAt     *time.Time      `json:"approvedAt"`
	Notes          string          `json:"notes"`
	CreatedBy      int64           `json:"createdBy"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Line is one ordered product. Discount and Tax are absolute amounts for the
// whole line, not rates.
type Line struct {
	ID               int64           `json:"id"`
	PurchaseOrderID  int64           `json:"purchaseOrderId"`
	ProductID        int64           `json:"productId"`
	Quantity         int64           `json:"quantity"`
	ReceivedQuantity int64           `json:"receivedQuantity"`
	UnitCost         decimal.Decimal `json:"unitCost"`
	Discount         decimal.Decimal `json:"discount"`
	Tax              decimal.Decimal `json:"tax"`
	LineTotal        decimal.Decimal `json:"lineTotal"`
}

// Remaining is the quantity still expected.
func (l Line) Remaining() int64 {
	return l.Quantity - l.ReceivedQuantity
}

var (
	ErrNotFound          = errors.New("purchasing: order not found")
	ErrEmptyLines        = errors.New("purchasing: at least one line is required")
	ErrNotEditable       = errors.New("purchasing: order can no longer be edited")
	ErrInvalidTransition = errors.New("purchasing: invalid status transition")
	ErrNotReceivable     = errors.New("purchasing: order is not awaiting goods")
	ErrOverReceive       = errors.New("purchasing: received quantity exceeds remaining")
	ErrUnknownLine       = errors.New("purchasing: unknown order line")
	ErrInvalidPayment    = errors.New("purchasing: invalid payment update")
)
