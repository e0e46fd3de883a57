package sales

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
		return fmt.Errorf("begin sales tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx, stock: stock.NewTx(tx)}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const invoiceColumns = `id, invoice_number, customer_id, status, sale_date, payment_terms, due_date, subtotal, total_discount, total_tax, shipping_cost, total_amount, payment_status, paid_amount, notes, created_by, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.CustomerID, &inv.Status, &inv.SaleDate,
		&inv.PaymentTerms, &inv.DueDate,
		&inv.Subtotal, &inv.TotalDiscount, &inv.TotalTax, &inv.ShippingCost, &inv.TotalAmount,
		&inv.PaymentStatus, &inv.PaidAmount, &inv.Notes, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrNotFound
	}
	return inv, err
}

// Get loads the invoice header and its lines.
func (r *Repository) Get(ctx context.Context, id int64) (Invoice, []Line, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM sales_invoices WHERE id = $1`, id))
	if err != nil {
		return Invoice{}, nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, sales_invoice_id, product_id, quantity, unit_price, unit_cost, discount, tax, line_total, location_id
FROM sales_invoice_lines WHERE sales_invoice_id = $1 ORDER BY id`, id)
	if err != nil {
		return Invoice{}, nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.SalesInvoiceID, &l.ProductID, &l.Quantity, &l.UnitPrice, &l.UnitCost, &l.Discount, &l.Tax, &l.LineTotal, &l.LocationID); err != nil {
			return Invoice{}, nil, err
		}
		lines = append(lines, l)
	}
	return inv, lines, rows.Err()
}

// List returns filtered invoices newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Invoice, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	n := 0
	if f.Status != "" {
		n++
		where += ` AND status = $` + strconv.Itoa(n)
		args = append(args, string(f.Status))
	}
	if f.CustomerID > 0 {
		n++
		where += ` AND customer_id = $` + strconv.Itoa(n)
		args = append(args, f.CustomerID)
	}
	if f.PaymentStatus != "" {
		n++
		where += ` AND payment_status = $` + strconv.Itoa(n)
		args = append(args, string(f.PaymentStatus))
	}
	if f.Search != "" {
		n++
		where += ` AND invoice_number ILIKE $` + strconv.Itoa(n)
		args = append(args, "%"+f.Search+"%")
	}
	if !f.From.IsZero() {
		n++
		where += ` AND sale_date >= $` + strconv.Itoa(n)
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		n++
		where += ` AND sale_date <= $` + strconv.Itoa(n)
		args = append(args, f.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales_invoices`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + invoiceColumns + ` FROM sales_invoices` + where + ` ORDER BY sale_date DESC, id DESC`
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

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

// CustomerTerms returns the payment terms of an active customer.
func (r *Repository) CustomerTerms(ctx context.Context, customerID int64) (PaymentTerms, error) {
	var terms string
	err := r.pool.QueryRow(ctx, `SELECT payment_terms FROM customers WHERE id = $1 AND is_active`, customerID).Scan(&terms)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrCustomerNotFound
	}
	if err != nil {
		return "", err
	}
	t := PaymentTerms(terms)
	if !ValidTerms(t) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTerms, terms)
	}
	return t, nil
}

// ProductCosts returns the cost price of each active product in ids.
func (r *Repository) ProductCosts(ctx context.Context, productIDs []int64) (map[int64]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, cost_price FROM products WHERE id = ANY($1) AND is_active`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	costs := make(map[int64]decimal.Decimal, len(productIDs))
	for rows.Next() {
		var id int64
		var cost decimal.Decimal
		if err := rows.Scan(&id, &cost); err != nil {
			return nil, err
		}
		costs[id] = cost
	}
	return costs, rows.Err()
}

// MarkOverdue promotes unsettled invoices past their due date. Draft and
// compensated invoices are skipped.
func (r *Repository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE sales_invoices
SET payment_status = 'overdue', updated_at = now()
WHERE payment_status IN ('unpaid', 'partially_paid')
  AND due_date IS NOT NULL AND due_date < $1
  AND status IN ('confirmed', 'shipped', 'delivered')`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type pgTx struct {
	tx    pgx.Tx
	stock *stock.Tx
}

func (t *pgTx) Stock() stock.TxRepository { return t.stock }

// NextNumber allocates the next monotonic invoice number.
func (t *pgTx) NextNumber(ctx context.Context) (string, error) {
	var counter int64
	err := t.tx.QueryRow(ctx, `INSERT INTO document_counters (kind, counter) VALUES ('sales_invoice', 1)
ON CONFLICT (kind) DO UPDATE SET counter = document_counters.counter + 1
RETURNING counter`).Scan(&counter)
	if err != nil {
		return "", fmt.Errorf("next invoice number: %w", err)
	}
	return fmt.Sprintf("INV-%06d", counter), nil
}

func (t *pgTx) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	now := time.Now().UTC()
	err := t.tx.QueryRow(ctx, `INSERT INTO sales_invoices
(invoice_number, customer_id, status, sale_date, payment_terms, due_date, subtotal, total_discount, total_tax, shipping_cost, total_amount, payment_status, paid_amount, notes, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$16)
RETURNING id`,
		inv.InvoiceNumber, inv.CustomerID, string(inv.Status), inv.SaleDate, string(inv.PaymentTerms), inv.DueDate,
		inv.Subtotal, inv.TotalDiscount, inv.TotalTax, inv.ShippingCost, inv.TotalAmount,
		string(inv.PaymentStatus), inv.PaidAmount, inv.Notes, inv.CreatedBy, now).Scan(&id)
	return id, err
}

func (t *pgTx) UpdateInvoice(ctx context.Context, inv Invoice) error {
	tag, err := t.tx.Exec(ctx, `UPDATE sales_invoices
SET customer_id = $2, sale_date = $3, payment_terms = $4, due_date = $5, subtotal = $6, total_discount = $7, total_tax = $8, shipping_cost = $9, total_amount = $10, notes = $11, updated_at = now()
WHERE id = $1`,
		inv.ID, inv.CustomerID, inv.SaleDate, string(inv.PaymentTerms), inv.DueDate,
		inv.Subtotal, inv.TotalDiscount, inv.TotalTax, inv.ShippingCost, inv.TotalAmount, inv.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE sales_invoices SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) InsertLine(ctx context.Context, line Line) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO sales_invoice_lines
(sales_invoice_id, product_id, quantity, unit_price, unit_cost, discount, tax, line_total, location_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		line.SalesInvoiceID, line.ProductID, line.Quantity, line.UnitPrice, line.UnitCost, line.Discount, line.Tax, line.LineTotal, line.LocationID)
	return err
}

func (t *pgTx) DeleteLines(ctx context.Context, invoiceID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM sales_invoice_lines WHERE sales_invoice_id = $1`, invoiceID)
	return err
}

func (t *pgTx) AdjustCustomerCounters(ctx context.Context, customerID, orders int64, sales, balance decimal.Decimal) error {
	_, err := t.tx.Exec(ctx, `UPDATE customers
SET total_orders = GREATEST(total_orders + $2, 0),
    total_sales_amount = total_sales_amount + $3,
    current_balance = GREATEST(current_balance + $4, 0),
    updated_at = now()
WHERE id = $1`, customerID, orders, sales, balance)
	return err
}

func (t *pgTx) TouchCustomerLastOrder(ctx context.Context, customerID int64, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE customers SET last_order_date = $2, updated_at = now() WHERE id = $1`, customerID, at)
	return err
}

func (t *pgTx) SetPayment(ctx context.Context, id int64, status PaymentStatus, paid decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, `UPDATE sales_invoices SET payment_status = $2, paid_amount = $3, updated_at = now() WHERE id = $1`, id, string(status), paid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
