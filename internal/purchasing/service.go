package purchasing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradewind-erp/tradewind/internal/ledger"
	"github.com/tradewind-erp/tradewind/internal/shared"
	"github.com/tradewind-erp/tradewind/internal/stock"
)

// TxRepository is the transactional surface of the purchasing store. Stock
// side effects run through Stock() so the goods receipt and the order update
// share one transaction.
type TxRepository interface {
	Stock() stock.TxRepository
	NextNumber(ctx context.Context) (string, error)
	InsertOrder(ctx context.Context, po PurchaseOrder) (int64, error)
	UpdateOrder(ctx context.Context, po PurchaseOrder) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	InsertLine(ctx context.Context, line Line) error
	DeleteLines(ctx context.Context, orderID int64) error
	SetLineReceived(ctx context.Context, lineID, received int64) error
	SetApproval(ctx context.Context, id, approvedBy int64, at time.Time) error
	SetActualDelivery(ctx context.Context, id int64, at time.Time) error
	AdjustSupplierCounters(ctx context.Context, supplierID, orders int64, spent, balance decimal.Decimal) error
	TouchSupplierLastOrder(ctx context.Context, supplierID int64, at time.Time) error
	SetPayment(ctx context.Context, id int64, status PaymentStatus, paid decimal.Decimal) error
}

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (PurchaseOrder, []Line, error)
	List(ctx context.Context, f Filter) ([]PurchaseOrder, int, error)
}

// AuditPort records workflow actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator bumps ledger caches after stock-affecting operations.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// Filter narrows order listings.
type Filter struct {
	Status     Status
	SupplierID int64
	Search     string
	From       time.Time
	To         time.Time
	Page       int
	Limit      int
}

// Service orchestrates the purchase order workflow.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	cache       CacheInvalidator
	log         *slog.Logger
}

// NewService constructs Service. audit, idempotency and cache may be nil.
func NewService(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore, cache CacheInvalidator, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, audit: audit, idempotency: idem, cache: cache, log: log}
}

// LineInput is one requested order line.
type LineInput struct {
	ProductID int64
	Quantity  int64
	UnitCost  decimal.Decimal
	Discount  decimal.Decimal
	Tax       decimal.Decimal
}

// CreateInput describes a new purchase order.
type CreateInput struct {
	SupplierID   int64
	OrderDate    time.Time
	ExpectedDate *time.Time
	ShippingCost decimal.Decimal
	Notes        string
	CreatedBy    int64
	Lines        []LineInput
}

// ReceiveLine reports goods arriving against one order line.
type ReceiveLine struct {
	LineID     int64
	Quantity   int64
	LocationID *int64
}

// openBalance is the portion of the order still owed to the supplier. The
// supplier's current_balance carries this amount while the order is committed.
func openBalance(po PurchaseOrder) decimal.Decimal {
	if po.PaymentStatus == PaymentPaid {
		return decimal.Zero
	}
	return po.TotalAmount.Sub(po.PaidAmount)
}

func computeTotals(po *PurchaseOrder, lines []Line) {
	subtotal, discount, tax := decimal.Zero, decimal.Zero, decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal)
		discount = discount.Add(l.Discount)
		tax = tax.Add(l.Tax)
	}
	po.Subtotal = subtotal
	po.TotalDiscount = discount
	po.TotalTax = tax
	po.TotalAmount = subtotal.Sub(discount).Add(tax).Add(po.ShippingCost)
}

func buildLines(inputs []LineInput) ([]Line, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyLines
	}
	lines := make([]Line, 0, len(inputs))
	for _, in := range inputs {
		if in.ProductID <= 0 || in.Quantity <= 0 || in.UnitCost.IsNegative() ||
			in.Discount.IsNegative() || in.Tax.IsNegative() {
			return nil, fmt.Errorf("%w: product %d", shared.ErrValidationFailed, in.ProductID)
		}
		total := in.UnitCost.Mul(decimal.NewFromInt(in.Quantity))
		if in.Discount.GreaterThan(total) {
			return nil, fmt.Errorf("%w: discount exceeds line total for product %d", shared.ErrValidationFailed, in.ProductID)
		}
		lines = append(lines, Line{
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			UnitCost:  in.UnitCost,
			Discount:  in.Discount,
			Tax:       in.Tax,
			LineTotal: total,
		})
	}
	return lines, nil
}

// Create persists a draft order with a freshly assigned number.
func (s *Service) Create(ctx context.Context, input CreateInput) (PurchaseOrder, error) {
	lines, err := buildLines(input.Lines)
	if err != nil {
		return PurchaseOrder{}, err
	}

	po := PurchaseOrder{
		SupplierID:    input.SupplierID,
		Status:        StatusDraft,
		OrderDate:     input.OrderDate,
		ExpectedDate:  input.ExpectedDate,
		ShippingCost:  input.ShippingCost,
		PaymentStatus: PaymentUnpaid,
		PaidAmount:    decimal.Zero,
		Notes:         input.Notes,
		CreatedBy:     input.CreatedBy,
	}
	if po.OrderDate.IsZero() {
		po.OrderDate = time.Now().UTC()
	}
	computeTotals(&po, lines)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx)
		if err != nil {
			return err
		}
		po.OrderNumber = number
		id, err := tx.InsertOrder(ctx, po)
		if err != nil {
			return err
		}
		po.ID = id
		for i := range lines {
			lines[i].PurchaseOrderID = id
			if err := tx.InsertLine(ctx, lines[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, input.CreatedBy, "purchase_order.create", po.ID, map[string]any{"number": po.OrderNumber})
	return po, nil
}

// Update replaces the header fields and lines of an order that has not
// started receiving goods. When the order is already committed the supplier's
// spend counter is shifted by the difference in total.
func (s *Service) Update(ctx context.Context, id int64, input CreateInput, actorID int64) (PurchaseOrder, error) {
	current, currentLines, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	switch current.Status {
	case StatusDraft, StatusPending, StatusApproved, StatusOrdered:
	default:
		return PurchaseOrder{}, ErrNotEditable
	}
	for _, l := range currentLines {
		if l.ReceivedQuantity > 0 {
			return PurchaseOrder{}, ErrNotEditable
		}
	}

	lines, err := buildLines(input.Lines)
	if err != nil {
		return PurchaseOrder{}, err
	}

	updated := current
	updated.SupplierID = input.SupplierID
	updated.ExpectedDate = input.ExpectedDate
	updated.ShippingCost = input.ShippingCost
	updated.Notes = input.Notes
	if !input.OrderDate.IsZero() {
		updated.OrderDate = input.OrderDate
	}
	computeTotals(&updated, lines)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateOrder(ctx, updated); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, id); err != nil {
			return err
		}
		for i := range lines {
			lines[i].PurchaseOrderID = id
			if err := tx.InsertLine(ctx, lines[i]); err != nil {
				return err
			}
		}
		if current.Status.Committed() {
			// Reverse the old totals, apply the new. Supplier may also
			// have changed while committed.
			if updated.SupplierID == current.SupplierID {
				if err := tx.AdjustSupplierCounters(ctx, current.SupplierID, 0,
					updated.TotalAmount.Sub(current.TotalAmount),
					openBalance(updated).Sub(openBalance(current))); err != nil {
					return err
				}
			} else {
				if err := tx.AdjustSupplierCounters(ctx, current.SupplierID, -1,
					current.TotalAmount.Neg(), openBalance(current).Neg()); err != nil {
					return err
				}
				if err := tx.AdjustSupplierCounters(ctx, updated.SupplierID, 1,
					updated.TotalAmount, openBalance(updated)); err != nil {
					return err
				}
				if err := tx.TouchSupplierLastOrder(ctx, updated.SupplierID, time.Now().UTC()); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, actorID, "purchase_order.update", id, map[string]any{"number": updated.OrderNumber})
	return updated, nil
}

// UpdateStatus applies a manual lifecycle transition with its side effects:
// commit and uncommit shift supplier counters, cancelling after a partial
// receipt books compensating stock-out movements.
func (s *Service) UpdateStatus(ctx context.Context, id int64, to Status, actorID int64) (PurchaseOrder, error) {
	po, lines, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if !CanTransition(po.Status, to) {
		return PurchaseOrder{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, po.Status, to)
	}

	wasCommitted := po.Status.Committed()
	var compensated bool
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateStatus(ctx, id, to); err != nil {
			return err
		}
		if to == StatusApproved {
			now := time.Now().UTC()
			if err := tx.SetApproval(ctx, id, actorID, now); err != nil {
				return err
			}
			po.ApprovedBy = &actorID
			po.ApprovedAt = &now
		}
		switch {
		case !wasCommitted && to.Committed():
			if err := tx.AdjustSupplierCounters(ctx, po.SupplierID, 1, po.TotalAmount, openBalance(po)); err != nil {
				return err
			}
			if err := tx.TouchSupplierLastOrder(ctx, po.SupplierID, time.Now().UTC()); err != nil {
				return err
			}
		case wasCommitted && to == StatusCancelled:
			if err := tx.AdjustSupplierCounters(ctx, po.SupplierID, -1, po.TotalAmount.Neg(), openBalance(po).Neg()); err != nil {
				return err
			}
			var err error
			compensated, err = s.compensateReceipts(ctx, tx, po, lines, actorID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	if compensated {
		s.invalidate(ctx)
	}
	po.Status = to
	s.recordAudit(ctx, actorID, "purchase_order.status", id, map[string]any{"number": po.OrderNumber, "to": string(to)})
	return po, nil
}

// compensateReceipts reverses goods already received on a cancelled order:
// one stock-out per received line plus a matching totalPurchased rollback,
// and the line's received counter returns to zero.
func (s *Service) compensateReceipts(ctx context.Context, tx TxRepository, po PurchaseOrder, lines []Line, actorID int64) (bool, error) {
	ref := &ledger.Reference{Kind: "purchase_order", ID: po.ID, Number: po.OrderNumber}
	reversed := false
	for _, line := range lines {
		if line.ReceivedQuantity == 0 {
			continue
		}
		reversed = true
		_, err := stock.Apply(ctx, tx.Stock(), stock.MovementInput{
			ProductID:   line.ProductID,
			Type:        ledger.TypeOut,
			Reason:      ledger.ReasonReturn,
			Quantity:    line.ReceivedQuantity,
			UnitCost:    line.UnitCost,
			Reference:   ref,
			PerformedBy: actorID,
			Notes:       "purchase order cancelled",
		})
		if err != nil {
			return false, err
		}
		if err := tx.Stock().AdjustTotalPurchased(ctx, line.ProductID, -line.ReceivedQuantity); err != nil {
			return false, err
		}
		if err := tx.SetLineReceived(ctx, line.ID, 0); err != nil {
			return false, err
		}
	}
	return reversed, nil
}

// Receive books arriving goods against the order. Each received line becomes
// a stock-in movement; the order moves to partially_received or received
// depending on whether every line is complete.
func (s *Service) Receive(ctx context.Context, id int64, receipts []ReceiveLine, idempotencyKey string, actorID int64) (PurchaseOrder, error) {
	if len(receipts) == 0 {
		return PurchaseOrder{}, ErrEmptyLines
	}
	po, lines, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	switch po.Status {
	case StatusOrdered, StatusPartiallyReceived:
	default:
		return PurchaseOrder{}, ErrNotReceivable
	}

	byID := make(map[int64]*Line, len(lines))
	for i := range lines {
		byID[lines[i].ID] = &lines[i]
	}
	for _, r := range receipts {
		line, ok := byID[r.LineID]
		if !ok {
			return PurchaseOrder{}, fmt.Errorf("%w: %d", ErrUnknownLine, r.LineID)
		}
		if r.Quantity <= 0 || r.Quantity > line.Remaining() {
			return PurchaseOrder{}, fmt.Errorf("%w: line %d has %d remaining", ErrOverReceive, r.LineID, line.Remaining())
		}
	}

	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, "purchasing.receive"); err != nil {
			return PurchaseOrder{}, err
		}
	}

	ref := &ledger.Reference{Kind: "purchase_order", ID: po.ID, Number: po.OrderNumber}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, r := range receipts {
			line := byID[r.LineID]
			_, err := stock.Apply(ctx, tx.Stock(), stock.MovementInput{
				ProductID:    line.ProductID,
				Type:         ledger.TypeIn,
				Reason:       ledger.ReasonPurchase,
				Quantity:     r.Quantity,
				ToLocationID: r.LocationID,
				UnitCost:     line.UnitCost,
				Reference:    ref,
				PerformedBy:  actorID,
			})
			if err != nil {
				return err
			}
			line.ReceivedQuantity += r.Quantity
			if err := tx.SetLineReceived(ctx, line.ID, line.ReceivedQuantity); err != nil {
				return err
			}
		}

		next := StatusReceived
		for _, line := range lines {
			if line.Remaining() > 0 {
				next = StatusPartiallyReceived
				break
			}
		}
		po.Status = next
		if err := tx.UpdateStatus(ctx, id, next); err != nil {
			return err
		}
		if next == StatusReceived {
			now := time.Now().UTC()
			if err := tx.SetActualDelivery(ctx, id, now); err != nil {
				return err
			}
			po.ActualDelivery = &now
		}
		return nil
	})
	if err != nil {
		if idempotencyKey != "" && s.idempotency != nil && !errors.Is(err, shared.ErrIdempotencyConflict) {
			_ = s.idempotency.Delete(ctx, idempotencyKey)
		}
		return PurchaseOrder{}, err
	}

	s.invalidate(ctx)
	s.recordAudit(ctx, actorID, "purchase_order.receive", id, map[string]any{"number": po.OrderNumber, "status": string(po.Status)})
	return po, nil
}

// UpdatePayment records a payment state change on a committed order.
func (s *Service) UpdatePayment(ctx context.Context, id int64, status PaymentStatus, paid decimal.Decimal, actorID int64) (PurchaseOrder, error) {
	if !ValidPaymentStatus(status) || paid.IsNegative() {
		return PurchaseOrder{}, ErrInvalidPayment
	}
	po, _, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if paid.GreaterThan(po.TotalAmount) {
		return PurchaseOrder{}, ErrInvalidPayment
	}
	after := po
	after.PaymentStatus = status
	after.PaidAmount = paid
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.SetPayment(ctx, id, status, paid); err != nil {
			return err
		}
		if po.Status.Committed() {
			delta := openBalance(after).Sub(openBalance(po))
			if !delta.IsZero() {
				return tx.AdjustSupplierCounters(ctx, po.SupplierID, 0, decimal.Zero, delta)
			}
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.PaymentStatus = status
	po.PaidAmount = paid
	s.recordAudit(ctx, actorID, "purchase_order.payment", id, map[string]any{"status": string(status)})
	return po, nil
}

// Get returns one order with its lines.
func (s *Service) Get(ctx context.Context, id int64) (PurchaseOrder, []Line, error) {
	return s.repo.Get(ctx, id)
}

// List returns filtered orders with a total count.
func (s *Service) List(ctx context.Context, f Filter) ([]PurchaseOrder, int, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "purchase_order",
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
