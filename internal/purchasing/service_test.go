package purchasing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tradewind-erp/tradewind/internal/ledger"
	"github.com/tradewind-erp/tradewind/internal/stock"
)

type supplierCounters struct {
	orders    int64
	spent     decimal.Decimal
	balance   decimal.Decimal
	lastOrder *time.Time
}

type memStock struct {
	products  map[int64]stock.ProductState
	levels    map[int64]map[int64]int64
	movements []ledger.Movement
	nextID    int64
}

func newMemStock() *memStock {
	return &memStock{products: make(map[int64]stock.ProductState), levels: make(map[int64]map[int64]int64)}
}

func (m *memStock) LockProduct(ctx context.Context, productID int64) error { return nil }

func (m *memStock) GetProductState(ctx context.Context, productID int64) (stock.ProductState, error) {
	state, ok := m.products[productID]
	if !ok {
		return stock.ProductState{}, stock.ErrProductNotFound
	}
	return state, nil
}

func (m *memStock) SaveProductState(ctx context.Context, state stock.ProductState) error {
	m.products[state.ID] = state
	return nil
}

func (m *memStock) AdjustTotalSold(ctx context.Context, productID, delta int64) error {
	state := m.products[productID]
	state.TotalSold += delta
	m.products[productID] = state
	return nil
}

func (m *memStock) AdjustTotalPurchased(ctx context.Context, productID, delta int64) error {
	state := m.products[productID]
	state.TotalPurchased += delta
	if state.TotalPurchased < 0 {
		state.TotalPurchased = 0
	}
	m.products[productID] = state
	return nil
}

func (m *memStock) GetLevels(ctx context.Context, productID int64) ([]stock.Level, error) {
	var out []stock.Level
	for locID, qty := range m.levels[productID] {
		out = append(out, stock.Level{LocationID: locID, Quantity: qty})
	}
	return out, nil
}

func (m *memStock) SetLevel(ctx context.Context, productID, locationID, quantity int64) error {
	buckets := m.levels[productID]
	if buckets == nil {
		buckets = make(map[int64]int64)
		m.levels[productID] = buckets
	}
	if quantity == 0 {
		delete(buckets, locationID)
		return nil
	}
	buckets[locationID] = quantity
	return nil
}

func (m *memStock) LocationExists(ctx context.Context, locationID int64) (bool, error) {
	return locationID > 0 && locationID < 10, nil
}

func (m *memStock) AppendMovement(ctx context.Context, mv ledger.Movement) (ledger.Movement, error) {
	m.nextID++
	mv.ID = m.nextID
	m.movements = append(m.movements, mv)
	return mv, nil
}

type memRepo struct {
	orders    map[int64]PurchaseOrder
	lines     map[int64][]Line
	suppliers map[int64]*supplierCounters
	stock     *memStock
	nextOrder int64
	nextLine  int64
	counter   int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		orders:    make(map[int64]PurchaseOrder),
		lines:     make(map[int64][]Line),
		suppliers: map[int64]*supplierCounters{
			1: {spent: decimal.Zero, balance: decimal.Zero},
			2: {spent: decimal.Zero, balance: decimal.Zero},
		},
		stock:     newMemStock(),
	}
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memTx{repo: r})
}

func (r *memRepo) Get(ctx context.Context, id int64) (PurchaseOrder, []Line, error) {
	po, ok := r.orders[id]
	if !ok {
		return PurchaseOrder{}, nil, ErrNotFound
	}
	lines := make([]Line, len(r.lines[id]))
	copy(lines, r.lines[id])
	return po, lines, nil
}

func (r *memRepo) List(ctx context.Context, f Filter) ([]PurchaseOrder, int, error) {
	var out []PurchaseOrder
	for _, po := range r.orders {
		if f.Status != "" && po.Status != f.Status {
			continue
		}
		out = append(out, po)
	}
	return out, len(out), nil
}

type memTx struct {
	repo *memRepo
}

func (t *memTx) Stock() stock.TxRepository { return t.repo.stock }

func (t *memTx) NextNumber(ctx context.Context) (string, error) {
	t.repo.counter++
	return fmt.Sprintf("PO-%06d", t.repo.counter), nil
}

func (t *memTx) InsertOrder(ctx context.Context, po PurchaseOrder) (int64, error) {
	t.repo.nextOrder++
	po.ID = t.repo.nextOrder
	t.repo.orders[po.ID] = po
	return po.ID, nil
}

func (t *memTx) UpdateOrder(ctx context.Context, po PurchaseOrder) error {
	stored, ok := t.repo.orders[po.ID]
	if !ok {
		return ErrNotFound
	}
	po.Status = stored.Status
	po.PaymentStatus = stored.PaymentStatus
	po.PaidAmount = stored.PaidAmount
	t.repo.orders[po.ID] = po
	return nil
}

func (t *memTx) UpdateStatus(ctx context.Context, id int64, status Status) error {
	po, ok := t.repo.orders[id]
	if !ok {
		return ErrNotFound
	}
	po.Status = status
	t.repo.orders[id] = po
	return nil
}

func (t *memTx) InsertLine(ctx context.Context, line Line) error {
	t.repo.nextLine++
	line.ID = t.repo.nextLine
	t.repo.lines[line.PurchaseOrderID] = append(t.repo.lines[line.PurchaseOrderID], line)
	return nil
}

func (t *memTx) DeleteLines(ctx context.Context, orderID int64) error {
	t.repo.lines[orderID] = nil
	return nil
}

func (t *memTx) SetApproval(ctx context.Context, id, approvedBy int64, at time.Time) error {
	po, ok := t.repo.orders[id]
	if !ok {
		return ErrNotFound
	}
	po.ApprovedBy = &approvedBy
	po.ApprovedAt = &at
	t.repo.orders[id] = po
	return nil
}

func (t *memTx) SetActualDelivery(ctx context.Context, id int64, at time.Time) error {
	po, ok := t.repo.orders[id]
	if !ok {
		return ErrNotFound
	}
	po.ActualDelivery = &at
	t.repo.orders[id] = po
	return nil
}

func (t *memTx) SetLineReceived(ctx context.Context, lineID, received int64) error {
	for orderID, lines := range t.repo.lines {
		for i := range lines {
			if lines[i].ID == lineID {
				t.repo.lines[orderID][i].ReceivedQuantity = received
				return nil
			}
		}
	}
	return ErrUnknownLine
}

func (t *memTx) AdjustSupplierCounters(ctx context.Context, supplierID, orders int64, spent, balance decimal.Decimal) error {
	c := t.repo.suppliers[supplierID]
	c.orders += orders
	c.spent = c.spent.Add(spent)
	c.balance = c.balance.Add(balance)
	if c.balance.IsNegative() {
		c.balance = decimal.Zero
	}
	return nil
}

func (t *memTx) TouchSupplierLastOrder(ctx context.Context, supplierID int64, at time.Time) error {
	t.repo.suppliers[supplierID].lastOrder = &at
	return nil
}

func (t *memTx) SetPayment(ctx context.Context, id int64, status PaymentStatus, paid decimal.Decimal) error {
	po, ok := t.repo.orders[id]
	if !ok {
		return ErrNotFound
	}
	po.PaymentStatus = status
	po.PaidAmount = paid
	t.repo.orders[id] = po
	return nil
}

func newTestService(repo *memRepo) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, nil, nil, nil, log)
}

func seedOrder(t *testing.T, svc *Service, repo *memRepo) PurchaseOrder {
	t.Helper()
	repo.stock.products[10] = stock.ProductState{ID: 10, SKU: "W-10", Name: "Widget"}
	po, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1,
		CreatedBy:  7,
		Lines: []LineInput{
			{ProductID: 10, Quantity: 10, UnitCost: decimal.NewFromInt(50)},
		},
	})
	require.NoError(t, err)
	return po
}

func advance(t *testing.T, svc *Service, id int64, path ...Status) PurchaseOrder {
	t.Helper()
	var po PurchaseOrder
	var err error
	for _, status := range path {
		po, err = svc.UpdateStatus(context.Background(), id, status, 7)
		require.NoError(t, err)
	}
	return po
}

func TestCreateAssignsNumberAndTotals(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	po, err := svc.Create(context.Background(), CreateInput{
		SupplierID:   1,
		ShippingCost: decimal.NewFromInt(20),
		CreatedBy:    7,
		Lines: []LineInput{
			{ProductID: 10, Quantity: 10, UnitCost: decimal.NewFromInt(50), Discount: decimal.NewFromInt(30), Tax: decimal.NewFromInt(50)},
			{ProductID: 11, Quantity: 2, UnitCost: decimal.NewFromInt(25), Tax: decimal.NewFromInt(5)},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "PO-000001", po.OrderNumber)
	require.Equal(t, StatusDraft, po.Status)
	require.True(t, po.Subtotal.Equal(decimal.NewFromInt(550)))
	require.True(t, po.TotalDiscount.Equal(decimal.NewFromInt(30)))
	require.True(t, po.TotalTax.Equal(decimal.NewFromInt(55)))
	// 550 - 30 + 55 + 20
	require.True(t, po.TotalAmount.Equal(decimal.NewFromInt(595)))
	require.Equal(t, PaymentUnpaid, po.PaymentStatus)

	second, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1, CreatedBy: 7,
		Lines: []LineInput{{ProductID: 10, Quantity: 1, UnitCost: decimal.NewFromInt(1)}},
	})
	require.NoError(t, err)
	require.Equal(t, "PO-000002", second.OrderNumber)
}

func TestCreateRequiresLines(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	_, err := svc.Create(context.Background(), CreateInput{SupplierID: 1})
	require.ErrorIs(t, err, ErrEmptyLines)
}

func TestCommitShiftsSupplierCounters(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	po := seedOrder(t, svc, repo)

	require.Equal(t, int64(0), repo.suppliers[1].orders)

	advance(t, svc, po.ID, StatusPending)
	require.Equal(t, int64(1), repo.suppliers[1].orders)
	require.True(t, repo.suppliers[1].spent.Equal(decimal.NewFromInt(500)))
	require.True(t, repo.suppliers[1].balance.Equal(decimal.NewFromInt(500)))
	require.NotNil(t, repo.suppliers[1].lastOrder)

	// further transitions inside the committed range leave counters alone
	advance(t, svc, po.ID, StatusApproved, StatusOrdered)
	require.Equal(t, int64(1), repo.suppliers[1].orders)
	require.True(t, repo.suppliers[1].spent.Equal(decimal.NewFromInt(500)))
	require.True(t, repo.suppliers[1].balance.Equal(decimal.NewFromInt(500)))
}

func TestInvalidTransitions(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	po := seedOrder(t, svc, repo)

	_, err := svc.UpdateStatus(context.Background(), po.ID, StatusOrdered, 7)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.UpdateStatus(context.Background(), po.ID, StatusReceived, 7)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPartialThenFullReceive(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	po := seedOrder(t, svc, repo)
	advance(t, svc, po.ID, StatusPending, StatusApproved, StatusOrdered)

	_, lines, err := svc.Get(context.Background(), po.ID)
	require.NoError(t, err)

	got, err := svc.Receive(context.Background(), po.ID, []ReceiveLine{{LineID: lines[0].ID, Quantity: 4}}, "", 7)
	require.NoError(t, err)
	require.Equal(t, StatusPartiallyReceived, got.Status)
	require.Nil(t, got.ActualDelivery)
	require.Equal(t, int64(4), repo.stock.products[10].CurrentStock)
	require.Equal(t, int64(4), repo.stock.products[10].TotalPurchased)
	require.Len(t, repo.stock.movements, 1)
	require.Equal(t, ledger.ReasonPurchase, repo.stock.movements[0].Reason)
	require.Equal(t, "purchase_order", repo.stock.movements[0].Reference.Kind)

	got, err = svc.Receive(context.Background(), po.ID, []ReceiveLine{{LineID: lines[0].ID, Quantity: 6}}, "", 7)
	require.NoError(t, err)
	require.Equal(t, StatusReceived, got.Status)
	require.NotNil(t, got.ActualDelivery)
	require.Equal(t, int64(10), repo.stock.products[10].CurrentStock)
}

func TestApprovalStampsOrder(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	po := seedOrder(t, svc, repo)
	advance(t, svc, po.ID, StatusPending)

	got, err := svc.UpdateStatus(context.Background(), po.ID, StatusApproved, 42)
	require.NoError(t, err)
	require.NotNil(t, got.ApprovedBy)
	require.Equal(t, int64(42), *got.ApprovedBy)
	require.NotNil(t, got.ApprovedAt)

	stored, _, err := svc.Get(context.Background(), po.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ApprovedBy)
	require.Equal(t, int64(42), *stored.ApprovedBy)
}

func TestCreateRejectsDiscountOverLineTotal(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	_, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1,
		CreatedBy:  7,
		Lines: []LineInput{
			{ProductID: 10, Quantity: 2, UnitCost: decimal.NewFromInt(5), Discount: decimal.NewFromInt(11)},
		},
	})
	require.Error(t, err)
}

func TestReceiveRejectsOverAndWrongState(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	po := seedOrder(t, svc, repo)

	_, lines, err := svc.Get(context.Background(), po.ID)
	require.NoError(t, err)

	_, err = svc.Receive(context.Background(), po.ID, []ReceiveLine{{LineID: lines[0].ID, Quantity: 1}}, "", 7)
	require.ErrorIs(t, err, ErrNotReceivable)

	advance(t, svc, po.ID, StatusPending, StatusApproved, StatusOrdered)
	_, err = svc.Receive(context.Background(), po.ID, []ReceiveLine{{LineID: lines[0].ID, Quantity: 11}}, "", 7)
	require.ErrorIs(t, err, ErrOverReceive)
	require.Equal(t, int64(0), repo.stock.products[10].CurrentStock)
}

func TestCancelAfterPartialReceiveCompensates(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	po := seedOrder(t, svc, repo)
	advance(t, svc, po.ID, StatusPending, StatusApproved, StatusOrdered)

	_, lines, err := svc.Get(context.Background(), po.ID)
	require.NoError(t, err)
	_, err = svc.Receive(context.Background(), po.ID, []ReceiveLine{{LineID: lines[0].ID, Quantity: 4}}, "", 7)
	require.NoError(t, err)

	got, err := svc.UpdateStatus(context.Background(), po.ID, StatusCancelled, 7)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, got.Status)

	require.Equal(t, int64(0), repo.stock.products[10].CurrentStock)
	require.Equal(t, int64(0), repo.stock.products[10].TotalPurchased)
	require.Equal(t, int64(0), repo.suppliers[1].orders)
	require.True(t, repo.suppliers[1].spent.IsZero())
	require.True(t, repo.suppliers[1].balance.IsZero())

	_, lines, err = svc.Get(context.Background(), po.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), lines[0].ReceivedQuantity)

	compensation := repo.stock.movements[len(repo.stock.movements)-1]
	require.Equal(t, ledger.TypeOut, compensation.Type)
	require.Equal(t, ledger.ReasonReturn, compensation.Reason)
	require.Equal(t, int64(4), compensation.Quantity)
}

func TestUpdateAdjustsCommittedSpend(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	po := seedOrder(t, svc, repo)
	advance(t, svc, po.ID, StatusPending)

	updated, err := svc.Update(context.Background(), po.ID, CreateInput{
		SupplierID: 1,
		Lines:      []LineInput{{ProductID: 10, Quantity: 12, UnitCost: decimal.NewFromInt(50)}},
	}, 7)
	require.NoError(t, err)
	require.True(t, updated.TotalAmount.Equal(decimal.NewFromInt(600)))
	require.Equal(t, int64(1), repo.suppliers[1].orders)
	require.True(t, repo.suppliers[1].spent.Equal(decimal.NewFromInt(600)))

	// Re-pricing stays open until goods start arriving.
	advance(t, svc, po.ID, StatusApproved, StatusOrdered)
	updated, err = svc.Update(context.Background(), po.ID, CreateInput{
		SupplierID: 1,
		Lines:      []LineInput{{ProductID: 10, Quantity: 12, UnitCost: decimal.NewFromInt(55)}},
	}, 7)
	require.NoError(t, err)
	require.True(t, updated.TotalAmount.Equal(decimal.NewFromInt(660)))
	require.Equal(t, int64(1), repo.suppliers[1].orders)
	require.True(t, repo.suppliers[1].spent.Equal(decimal.NewFromInt(660)))
}

func TestUpdateMovesSpendBetweenSuppliers(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	po := seedOrder(t, svc, repo)
	advance(t, svc, po.ID, StatusPending)

	_, err := svc.Update(context.Background(), po.ID, CreateInput{
		SupplierID: 2,
		Lines:      []LineInput{{ProductID: 10, Quantity: 10, UnitCost: decimal.NewFromInt(50)}},
	}, 7)
	require.NoError(t, err)
	require.Equal(t, int64(0), repo.suppliers[1].orders)
	require.True(t, repo.suppliers[1].spent.IsZero())
	require.Equal(t, int64(1), repo.suppliers[2].orders)
	require.True(t, repo.suppliers[2].spent.Equal(decimal.NewFromInt(500)))
}

func TestUpdateRejectedAfterReceiptStarts(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	po := seedOrder(t, svc, repo)
	advance(t, svc, po.ID, StatusPending, StatusApproved, StatusOrdered)

	_, lines, err := svc.Get(context.Background(), po.ID)
	require.NoError(t, err)
	_, err = svc.Receive(context.Background(), po.ID, []ReceiveLine{{LineID: lines[0].ID, Quantity: 1}}, "", 7)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), po.ID, CreateInput{
		SupplierID: 1,
		Lines:      []LineInput{{ProductID: 10, Quantity: 10, UnitCost: decimal.NewFromInt(50)}},
	}, 7)
	require.ErrorIs(t, err, ErrNotEditable)
}

func TestUpdatePaymentBounds(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	po := seedOrder(t, svc, repo)

	_, err := svc.UpdatePayment(context.Background(), po.ID, PaymentPaid, decimal.NewFromInt(9999), 7)
	require.ErrorIs(t, err, ErrInvalidPayment)

	got, err := svc.UpdatePayment(context.Background(), po.ID, PaymentPartial, decimal.NewFromInt(200), 7)
	require.NoError(t, err)
	require.Equal(t, PaymentPartial, got.PaymentStatus)
	require.True(t, got.PaidAmount.Equal(decimal.NewFromInt(200)))
}

func TestPaymentShiftsSupplierBalance(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	po := seedOrder(t, svc, repo)
	advance(t, svc, po.ID, StatusPending)
	require.True(t, repo.suppliers[1].balance.Equal(decimal.NewFromInt(500)))

	_, err := svc.UpdatePayment(context.Background(), po.ID, PaymentPartial, decimal.NewFromInt(200), 7)
	require.NoError(t, err)
	require.True(t, repo.suppliers[1].balance.Equal(decimal.NewFromInt(300)))

	_, err = svc.UpdatePayment(context.Background(), po.ID, PaymentPaid, decimal.NewFromInt(500), 7)
	require.NoError(t, err)
	require.True(t, repo.suppliers[1].balance.IsZero())

	_, err = svc.UpdatePayment(context.Background(), po.ID, PaymentUnpaid, decimal.Zero, 7)
	require.NoError(t, err)
	require.True(t, repo.suppliers[1].balance.Equal(decimal.NewFromInt(500)))
}

func TestRecommitCancelledOrder(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	po := seedOrder(t, svc, repo)
	advance(t, svc, po.ID, StatusPending, StatusCancelled)
	require.Equal(t, int64(0), repo.suppliers[1].orders)

	got := advance(t, svc, po.ID, StatusPending)
	require.Equal(t, StatusPending, got.Status)
	require.Equal(t, int64(1), repo.suppliers[1].orders)
	require.True(t, repo.suppliers[1].spent.Equal(decimal.NewFromInt(500)))
}
