package sales

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradewind-erp/tradewind/internal/ledger"
	"github.com/tradewind-erp/tradewind/internal/shared"
	"github.com/tradewind-erp/tradewind/internal/stock"
)

// TxRepository is the transactional surface of the sales store. Stock side
// effects run through Stock() so invoice confirmation and the stock-out
// movements share one transaction.
type TxRepository interface {
	Stock() stock.TxRepository
	NextNumber(ctx context.Context) (string, error)
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	UpdateInvoice(ctx context.Context, inv Invoice) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	InsertLine(ctx context.Context, line Line) error
	DeleteLines(ctx context.Context, invoiceID int64) error
	AdjustCustomerCounters(ctx context.Context, customerID, orders int64, sales, balance decimal.Decimal) error
	TouchCustomerLastOrder(ctx context.Context, customerID int64, at time.Time) error
	SetPayment(ctx context.Context, id int64, status PaymentStatus, paid decimal.Decimal) error
}

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Invoice, []Line, error)
	List(ctx context.Context, f Filter) ([]Invoice, int, error)
	CustomerTerms(ctx context.Context, customerID int64) (PaymentTerms, error)
	ProductCosts(ctx context.Context, productIDs []int64) (map[int64]decimal.Decimal, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

// AuditPort records workflow actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator bumps ledger caches after stock-affecting operations.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// Filter narrows invoice listings.
type Filter struct {
	Status        Status
	CustomerID    int64
	PaymentStatus PaymentStatus
	Search        string
	From          time.Time
	To            time.Time
	Page          int
	Limit         int
}

// Service orchestrates the sales invoice workflow.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	cache CacheInvalidator
	log   *slog.Logger
}

// NewService constructs Service. audit and cache may be nil.
func NewService(repo RepositoryPort, audit AuditPort, cache CacheInvalidator, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, audit: audit, cache: cache, log: log}
}

// LineInput is one requested invoice line.
type LineInput struct {
	ProductID  int64
	Quantity   int64
	UnitPrice  decimal.Decimal
	Discount   decimal.Decimal
	Tax        decimal.Decimal
	LocationID *int64
}

// CreateInput describes a new sales invoice. Status may be draft or
// confirmed; confirmed applies the stock-outs immediately.
type CreateInput struct {
	CustomerID   int64
	SaleDate     time.Time
	Status       Status
	ShippingCost decimal.Decimal
	Notes        string
	CreatedBy    int64
	Lines        []LineInput
}

// openBalance is the portion of the invoice still owed by the customer. The
// customer's current_balance carries this amount while the invoice is active.
// Cash sales settle immediately and never enter the balance.
func openBalance(inv Invoice) decimal.Decimal {
	if inv.PaymentTerms == TermsCash || inv.PaymentStatus == PaymentPaid {
		return decimal.Zero
	}
	return inv.TotalAmount.Sub(inv.PaidAmount)
}

func computeTotals(inv *Invoice, lines []Line) {
	subtotal, discount, tax := decimal.Zero, decimal.Zero, decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal)
		discount = discount.Add(l.Discount)
		tax = tax.Add(l.Tax)
	}
	inv.Subtotal = subtotal
	inv.TotalDiscount = discount
	inv.TotalTax = tax
	inv.TotalAmount = subtotal.Sub(discount).Add(tax).Add(inv.ShippingCost)
}

func (s *Service) buildLines(ctx context.Context, inputs []LineInput) ([]Line, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyLines
	}
	ids := make([]int64, 0, len(inputs))
	for _, in := range inputs {
		if in.ProductID <= 0 || in.Quantity <= 0 || in.UnitPrice.IsNegative() ||
			in.Discount.IsNegative() || in.Tax.IsNegative() {
			return nil, fmt.Errorf("%w: product %d", shared.ErrValidationFailed, in.ProductID)
		}
		ids = append(ids, in.ProductID)
	}
	costs, err := s.repo.ProductCosts(ctx, ids)
	if err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(inputs))
	for _, in := range inputs {
		cost, ok := costs[in.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %d", stock.ErrProductNotFound, in.ProductID)
		}
		total := in.UnitPrice.Mul(decimal.NewFromInt(in.Quantity))
		if in.Discount.GreaterThan(total) {
			return nil, fmt.Errorf("%w: discount exceeds line total for product %d", shared.ErrValidationFailed, in.ProductID)
		}
		lines = append(lines, Line{
			ProductID:  in.ProductID,
			Quantity:   in.Quantity,
			UnitPrice:  in.UnitPrice,
			UnitCost:   cost,
			Discount:   in.Discount,
			Tax:        in.Tax,
			LineTotal:  total,
			LocationID: in.LocationID,
		})
	}
	return lines, nil
}

// stockOuts builds one out movement per line, costed at the product's cost
// price captured on the line.
func stockOuts(inv Invoice, lines []Line, actorID int64) []stock.MovementInput {
	ref := &ledger.Reference{Kind: "sales_invoice", ID: inv.ID, Number: inv.InvoiceNumber}
	inputs := make([]stock.MovementInput, 0, len(lines))
	for _, l := range lines {
		inputs = append(inputs, stock.MovementInput{
			ProductID:      l.ProductID,
			Type:           ledger.TypeOut,
			Reason:         ledger.ReasonSale,
			Quantity:       l.Quantity,
			FromLocationID: l.LocationID,
			UnitCost:       l.UnitCost,
			Reference:      ref,
			PerformedBy:    actorID,
		})
	}
	return inputs
}

// reverseStockOuts compensates prior stock-outs: one stock-in per line plus a
// matching totalSold rollback.
func reverseStockOuts(ctx context.Context, tx TxRepository, inv Invoice, lines []Line, actorID int64, notes string) error {
	ref := &ledger.Reference{Kind: "sales_invoice", ID: inv.ID, Number: inv.InvoiceNumber}
	for _, l := range lines {
		_, err := stock.Apply(ctx, tx.Stock(), stock.MovementInput{
			ProductID:    l.ProductID,
			Type:         ledger.TypeIn,
			Reason:       ledger.ReasonReturn,
			Quantity:     l.Quantity,
			ToLocationID: l.LocationID,
			UnitCost:     l.UnitCost,
			Reference:    ref,
			PerformedBy:  actorID,
			Notes:        notes,
		})
		if err != nil {
			return err
		}
		if err := tx.Stock().AdjustTotalSold(ctx, l.ProductID, -l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// commitCustomer books the invoice on the customer: order count, lifetime
// sales and, for credit sales, the open balance.
func commitCustomer(ctx context.Context, tx TxRepository, inv Invoice) error {
	if err := tx.AdjustCustomerCounters(ctx, inv.CustomerID, 1, inv.TotalAmount, openBalance(inv)); err != nil {
		return err
	}
	return tx.TouchCustomerLastOrder(ctx, inv.CustomerID, time.Now().UTC())
}

func uncommitCustomer(ctx context.Context, tx TxRepository, inv Invoice) error {
	return tx.AdjustCustomerCounters(ctx, inv.CustomerID, -1, inv.TotalAmount.Neg(), openBalance(inv).Neg())
}

// Create persists a new invoice with a freshly assigned number. The due date
// derives from the customer's payment terms. Creating directly in confirmed
// applies stock-outs and customer counters in the same transaction; if any
// line lacks stock the whole creation fails.
func (s *Service) Create(ctx context.Context, input CreateInput) (Invoice, error) {
	status := input.Status
	if status == "" {
		status = StatusDraft
	}
	if status != StatusDraft && status != StatusConfirmed {
		return Invoice{}, fmt.Errorf("%w: cannot create in %s", ErrInvalidTransition, status)
	}
	terms, err := s.repo.CustomerTerms(ctx, input.CustomerID)
	if err != nil {
		return Invoice{}, err
	}
	lines, err := s.buildLines(ctx, input.Lines)
	if err != nil {
		return Invoice{}, err
	}

	inv := Invoice{
		CustomerID:    input.CustomerID,
		Status:        status,
		SaleDate:      input.SaleDate,
		PaymentTerms:  terms,
		ShippingCost:  input.ShippingCost,
		PaymentStatus: PaymentUnpaid,
		PaidAmount:    decimal.Zero,
		Notes:         input.Notes,
		CreatedBy:     input.CreatedBy,
	}
	if inv.SaleDate.IsZero() {
		inv.SaleDate = time.Now().UTC()
	}
	inv.DueDate = terms.DueDate(inv.SaleDate)
	computeTotals(&inv, lines)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number
		id, err := tx.InsertInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = id
		for i := range lines {
			lines[i].SalesInvoiceID = id
			if err := tx.InsertLine(ctx, lines[i]); err != nil {
				return err
			}
		}
		if status == StatusConfirmed {
			if _, err := stock.ApplyAll(ctx, tx.Stock(), stockOuts(inv, lines, input.CreatedBy)); err != nil {
				return err
			}
			if err := commitCustomer(ctx, tx, inv); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	if status == StatusConfirmed {
		s.invalidate(ctx)
	}
	s.recordAudit(ctx, input.CreatedBy, "sales_invoice.create", inv.ID, map[string]any{"number": inv.InvoiceNumber, "status": string(status)})
	return inv, nil
}

// Update replaces the header fields and lines of an invoice that is not
// terminal. On an active invoice the prior stock-outs are reversed, the new
// quantities validated against live stock and re-applied, and the customer's
// spend shifts by the difference in total.
func (s *Service) Update(ctx context.Context, id int64, input CreateInput, actorID int64) (Invoice, error) {
	current, currentLines, err := s.repo.Get(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	switch current.Status {
	case StatusDraft, StatusConfirmed, StatusShipped:
	default:
		return Invoice{}, ErrNotEditable
	}

	lines, err := s.buildLines(ctx, input.Lines)
	if err != nil {
		return Invoice{}, err
	}

	updated := current
	updated.ShippingCost = input.ShippingCost
	updated.Notes = input.Notes
	if !input.SaleDate.IsZero() {
		updated.SaleDate = input.SaleDate
	}
	if input.CustomerID > 0 && input.CustomerID != current.CustomerID {
		terms, err := s.repo.CustomerTerms(ctx, input.CustomerID)
		if err != nil {
			return Invoice{}, err
		}
		updated.CustomerID = input.CustomerID
		updated.PaymentTerms = terms
	}
	updated.DueDate = updated.PaymentTerms.DueDate(updated.SaleDate)
	computeTotals(&updated, lines)

	active := current.Status.Active()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if active {
			if err := reverseStockOuts(ctx, tx, current, currentLines, actorID, "invoice revised"); err != nil {
				return err
			}
		}
		if err := tx.UpdateInvoice(ctx, updated); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, id); err != nil {
			return err
		}
		for i := range lines {
			lines[i].SalesInvoiceID = id
			if err := tx.InsertLine(ctx, lines[i]); err != nil {
				return err
			}
		}
		if active {
			if _, err := stock.ApplyAll(ctx, tx.Stock(), stockOuts(updated, lines, actorID)); err != nil {
				return err
			}
			if updated.CustomerID == current.CustomerID {
				if err := tx.AdjustCustomerCounters(ctx, current.CustomerID, 0,
					updated.TotalAmount.Sub(current.TotalAmount),
					openBalance(updated).Sub(openBalance(current))); err != nil {
					return err
				}
			} else {
				if err := uncommitCustomer(ctx, tx, current); err != nil {
					return err
				}
				if err := commitCustomer(ctx, tx, updated); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	if active {
		s.invalidate(ctx)
	}
	s.recordAudit(ctx, actorID, "sales_invoice.update", id, map[string]any{"number": updated.InvoiceNumber})
	return updated, nil
}

// UpdateStatus applies a lifecycle transition with its side effects:
// confirmation books the stock-outs and customer counters, cancellation or
// return from an active state compensates both.
func (s *Service) UpdateStatus(ctx context.Context, id int64, to Status, actorID int64) (Invoice, error) {
	inv, lines, err := s.repo.Get(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if !CanTransition(inv.Status, to) {
		return Invoice{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, inv.Status, to)
	}

	wasActive := inv.Status.Active()
	stockTouched := false
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateStatus(ctx, id, to); err != nil {
			return err
		}
		switch {
		case !wasActive && to.Active():
			stockTouched = true
			if _, err := stock.ApplyAll(ctx, tx.Stock(), stockOuts(inv, lines, actorID)); err != nil {
				return err
			}
			return commitCustomer(ctx, tx, inv)
		case wasActive && (to == StatusCancelled || to == StatusReturned):
			stockTouched = true
			notes := "invoice cancelled"
			if to == StatusReturned {
				notes = "invoice returned"
			}
			if err := reverseStockOuts(ctx, tx, inv, lines, actorID, notes); err != nil {
				return err
			}
			return uncommitCustomer(ctx, tx, inv)
		}
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	if stockTouched {
		s.invalidate(ctx)
	}
	inv.Status = to
	s.recordAudit(ctx, actorID, "sales_invoice.status", id, map[string]any{"number": inv.InvoiceNumber, "to": string(to)})
	return inv, nil
}

// UpdatePayment records a payment state change. Moving to or from paid shifts
// the customer's open balance while the invoice is active.
func (s *Service) UpdatePayment(ctx context.Context, id int64, status PaymentStatus, paid decimal.Decimal, actorID int64) (Invoice, error) {
	if !ValidPaymentStatus(status) || paid.IsNegative() {
		return Invoice{}, ErrInvalidPayment
	}
	inv, _, err := s.repo.Get(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if paid.GreaterThan(inv.TotalAmount) {
		return Invoice{}, ErrInvalidPayment
	}
	after := inv
	after.PaymentStatus = status
	after.PaidAmount = paid
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.SetPayment(ctx, id, status, paid); err != nil {
			return err
		}
		if inv.Status.Active() {
			delta := openBalance(after).Sub(openBalance(inv))
			if !delta.IsZero() {
				return tx.AdjustCustomerCounters(ctx, inv.CustomerID, 0, decimal.Zero, delta)
			}
		}
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	inv.PaymentStatus = status
	inv.PaidAmount = paid
	s.recordAudit(ctx, actorID, "sales_invoice.payment", id, map[string]any{"status": string(status)})
	return inv, nil
}

// SweepOverdue promotes unpaid invoices past their due date to overdue and
// returns how many were updated. Customer balances are untouched; an overdue
// invoice is still owed.
func (s *Service) SweepOverdue(ctx context.Context) (int64, error) {
	n, err := s.repo.MarkOverdue(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("overdue sweep marked invoices", "count", n)
	}
	return n, nil
}

// Get returns one invoice with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, []Line, error) {
	return s.repo.Get(ctx, id)
}

// List returns filtered invoices with a total count.
func (s *Service) List(ctx context.Context, f Filter) ([]Invoice, int, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sales_invoice",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
	}); err != nil {
		s.log.Warn("audit record failed", "action", action, "error", err)
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}
