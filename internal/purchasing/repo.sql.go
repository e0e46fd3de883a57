package purchasing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tradewind-erp/tradewind/internal/stock"
)

// Repository implements RepositoryPort on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("begin purchasing tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx, stock: stock.NewTx(tx)}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const orderColumns = `id, order_number, supplier_id, status, order_date, expected_date, actual_delivery_date, subtotal, total_discount, total_tax, shipping_cost, total_amount, payment_status, paid_amount, approved_by, approved_at, notes, created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := row.Scan(&po.ID, &po.OrderNumber, &po.SupplierID, &po.Status, &po.OrderDate, &po.ExpectedDate, &po.ActualDelivery,
		&po.Subtotal, &po.TotalDiscount, &po.TotalTax, &po.ShippingCost, &po.TotalAmount,
		&po.PaymentStatus, &po.PaidAmount, &po.ApprovedBy, &po.ApprovedAt, &po.Notes, &po.CreatedBy, &po.CreatedAt, &po.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseOrder{}, ErrNotFound
	}
	return po, err
}

// Get loads the order header and its lines.
func (r *Repository) Get(ctx context.Context, id int64) (PurchaseOrder, []Line, error) {
	po, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id = $1`, id))
	if err != nil {
		return PurchaseOrder{}, nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, purchase_order_id, product_id, quantity, received_quantity, unit_cost, discount, tax, line_total
FROM purchase_order_lines WHERE purchase_order_id = $1 ORDER BY id`, id)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.PurchaseOrderID, &l.ProductID, &l.Quantity, &l.ReceivedQuantity, &l.UnitCost, &l.Discount, &l.Tax, &l.LineTotal); err != nil {
			return PurchaseOrder{}, nil, err
		}
		lines = append(lines, l)
	}
	return po, lines, rows.Err()
}

// List returns filtered orders newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]PurchaseOrder, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	n := 0
	if f.Status != "" {
		n++
		where += ` AND status = $` + strconv.Itoa(n)
		args = append(args, string(f.Status))
	}
	if f.SupplierID > 0 {
		n++
		where += ` AND supplier_id = $` + strconv.Itoa(n)
		args = append(args, f.SupplierID)
	}
	if f.Search != "" {
		n++
		where += ` AND order_number ILIKE $` + strconv.Itoa(n)
		args = append(args, "%"+f.Search+"%")
	}
	if !f.From.IsZero() {
		n++
		where += ` AND order_date >= $` + strconv.Itoa(n)
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		n++
		where += ` AND order_date <= $` + strconv.Itoa(n)
		args = append(args, f.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + orderColumns + ` FROM purchase_orders` + where + ` ORDER BY order_date DESC, id DESC`
	if f.Limit > 0 {
		offset := (f.Page - 1) * f.Limit
		if offset < 0 {
			offset = 0
		}
		query += ` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
		args = append(args, f.Limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		po, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, po)
	}
	return orders, total, rows.Err()
}

type pgTx struct {
	tx    pgx.Tx
	stock *stock.Tx
}

func (t *pgTx) Stock() stock.TxRepository { return t.stock }

// NextNumber allocates the next monotonic order number.
func (t *pgTx) NextNumber(ctx context.Context) (string, error) {
	var counter int64
	err := t.tx.QueryRow(ctx, `INSERT INTO document_counters (kind, counter) VALUES ('purchase_order', 1)
ON CONFLICT (kind) DO UPDATE SET counter = document_counters.counter + 1
RETURNING counter`).Scan(&counter)
	if err != nil {
		return "", fmt.Errorf("next purchase order number: %w", err)
	}
	return fmt.Sprintf("PO-%06d", counter), nil
}

func (t *pgTx) InsertOrder(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	now := time.Now().UTC()
	err := t.tx.QueryRow(ctx, `INSERT INTO purchase_orders
(order_number, supplier_id, status, order_date, expected_date, subtotal, total_discount, total_tax, shipping_cost, total_amount, payment_status, paid_amount, notes, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$15)
RETURNING id`,
		po.OrderNumber, po.SupplierID, string(po.Status), po.OrderDate, po.ExpectedDate,
		po.Subtotal, po.TotalDiscount, po.TotalTax, po.ShippingCost, po.TotalAmount,
		string(po.PaymentStatus), po.PaidAmount, po.Notes, po.CreatedBy, now).Scan(&id)
	return id, err
}

func (t *pgTx) UpdateOrder(ctx context.Context, po PurchaseOrder) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders
SET supplier_id = $2, order_date = $3, expected_date = $4, subtotal = $5, total_discount = $6, total_tax = $7, shipping_cost = $8, total_amount = $9, notes = $10, updated_at = now()
WHERE id = $1`,
		po.ID, po.SupplierID, po.OrderDate, po.ExpectedDate, po.Subtotal, po.TotalDiscount, po.TotalTax, po.ShippingCost, po.TotalAmount, po.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) InsertLine(ctx context.Context, line Line) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO purchase_order_lines
(purchase_order_id, product_id, quantity, received_quantity, unit_cost, discount, tax, line_total)
VALUES ($1, $2, $3, 0, $4, $5, $6, $7)`,
		line.PurchaseOrderID, line.ProductID, line.Quantity, line.UnitCost, line.Discount, line.Tax, line.LineTotal)
	return err
}

func (t *pgTx) DeleteLines(ctx context.Context, orderID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM purchase_order_lines WHERE purchase_order_id = $1`, orderID)
	return err
}

func (t *pgTx) SetApproval(ctx context.Context, id, approvedBy int64, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET approved_by = $2, approved_at = $3, updated_at = now() WHERE id = $1`, id, approvedBy, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) SetActualDelivery(ctx context.Context, id int64, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET actual_delivery_date = $2, updated_at = now() WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) SetLineReceived(ctx context.Context, lineID, received int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_order_lines SET received_quantity = $2 WHERE id = $1`, lineID, received)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUnknownLine
	}
	return nil
}

func (t *pgTx) AdjustSupplierCounters(ctx context.Context, supplierID, orders int64, spent, balance decimal.Decimal) error {
	_, err := t.tx.Exec(ctx, `UPDATE suppliers
SET total_orders = GREATEST(total_orders + $2, 0),
    total_purchase_amount = total_purchase_amount + $3,
    current_balance = GREATEST(current_balance + $4, 0),
    updated_at = now()
WHERE id = $1`, supplierID, orders, spent, balance)
	return err
}

func (t *pgTx) TouchSupplierLastOrder(ctx context.Context, supplierID int64, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE suppliers SET last_order_date = $2, updated_at = now() WHERE id = $1`, supplierID, at)
	return err
}

func (t *pgTx) SetPayment(ctx context.Context, id int64, status PaymentStatus, paid decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET payment_status = $2, paid_amount = $3, updated_at = now() WHERE id = $1`, id, string(status), paid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
