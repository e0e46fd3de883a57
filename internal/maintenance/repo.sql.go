package maintenance

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradewind-erp/tradewind/internal/ledger"
)

// Repository reads stored counters and their sources of truth.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ProductStates(ctx context.Context) ([]ProductState, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, current_stock, total_sold, total_purchased FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select product states: %w", err)
	}
	defer rows.Close()

	var out []ProductState
	for rows.Next() {
		var p ProductState
		if err := rows.Scan(&p.ID, &p.CurrentStock, &p.TotalSold, &p.TotalPurchased); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) ProductMovements(ctx context.Context, productID int64) ([]ledger.Movement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, movement_type, quantity, previous_stock, new_stock
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY movement_date, id`, productID)
	if err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	defer rows.Close()

	var out []ledger.Movement
	for rows.Next() {
		var m ledger.Movement
		var movementType string
		if err := rows.Scan(&m.ID, &m.ProductID, &movementType, &m.Quantity, &m.PreviousStock, &m.NewStock); err != nil {
			return nil, err
		}
		m.Type = ledger.MovementType(movementType)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repository) LevelAggregates(ctx context.Context) (map[int64]LevelAggregate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, COALESCE(SUM(quantity), 0),
		       COUNT(*) FILTER (WHERE quantity = 0)
		FROM stock_levels
		GROUP BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("select level aggregates: %w", err)
	}
	defer rows.Close()

	out := map[int64]LevelAggregate{}
	for rows.Next() {
		var id int64
		var agg LevelAggregate
		if err := rows.Scan(&id, &agg.Sum, &agg.ZeroRows); err != nil {
			return nil, err
		}
		out[id] = agg
	}
	return out, rows.Err()
}

func (r *Repository) SoldQuantities(ctx context.Context) (map[int64]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.product_id, COALESCE(SUM(l.quantity), 0)
		FROM sales_invoice_lines l
		JOIN sales_invoices i ON i.id = l.sales_invoice_id
		WHERE i.status IN ('confirmed', 'shipped', 'delivered')
		GROUP BY l.product_id`)
	if err != nil {
		return nil, fmt.Errorf("select sold quantities: %w", err)
	}
	defer rows.Close()
	return scanQuantities(rows)
}

func (r *Repository) ReceivedQuantities(ctx context.Context) (map[int64]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.product_id, COALESCE(SUM(l.received_quantity), 0)
		FROM purchase_order_lines l
		JOIN purchase_orders po ON po.id = l.purchase_order_id
		WHERE po.status NOT IN ('draft', 'cancelled')
		GROUP BY l.product_id`)
	if err != nil {
		return nil, fmt.Errorf("select received quantities: %w", err)
	}
	defer rows.Close()
	return scanQuantities(rows)
}

func scanQuantities(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) (map[int64]int64, error) {
	out := map[int64]int64{}
	for rows.Next() {
		var id, qty int64
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, err
		}
		out[id] = qty
	}
	return out, rows.Err()
}

func (r *Repository) SupplierAggregates(ctx context.Context) ([]CounterAggregate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.total_orders, s.total_purchase_amount, s.current_balance,
		       COALESCE(po.orders, 0), COALESCE(po.amount, 0), COALESCE(po.balance, 0)
		FROM suppliers s
		LEFT JOIN (
			SELECT supplier_id,
			       COUNT(*) AS orders,
			       SUM(total_amount) AS amount,
			       SUM(CASE WHEN payment_status <> 'paid' THEN total_amount - paid_amount ELSE 0 END) AS balance
			FROM purchase_orders
			WHERE status NOT IN ('draft', 'cancelled')
			GROUP BY supplier_id
		) po ON po.supplier_id = s.id
		ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("select supplier aggregates: %w", err)
	}
	defer rows.Close()
	return scanAggregates(rows)
}

func (r *Repository) CustomerAggregates(ctx context.Context) ([]CounterAggregate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.total_orders, c.total_sales_amount, c.current_balance,
		       COALESCE(inv.orders, 0), COALESCE(inv.amount, 0), COALESCE(inv.balance, 0)
		FROM customers c
		LEFT JOIN (
			SELECT customer_id,
			       COUNT(*) AS orders,
			       SUM(total_amount) AS amount,
			       SUM(CASE WHEN payment_status <> 'paid' AND payment_terms <> 'cash'
			                THEN total_amount - paid_amount ELSE 0 END) AS balance
			FROM sales_invoices
			WHERE status IN ('confirmed', 'shipped', 'delivered')
			GROUP BY customer_id
		) inv ON inv.customer_id = c.id
		ORDER BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("select customer aggregates: %w", err)
	}
	defer rows.Close()
	return scanAggregates(rows)
}

func scanAggregates(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]CounterAggregate, error) {
	var out []CounterAggregate
	for rows.Next() {
		var a CounterAggregate
		if err := rows.Scan(&a.ID, &a.StoredOrders, &a.StoredAmount, &a.StoredBalance,
			&a.ComputedOrders, &a.ComputedAmount, &a.ComputedBalance); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) RepairProduct(ctx context.Context, p ProductState) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE products
		SET current_stock = $2, total_sold = $3, total_purchased = $4, updated_at = now()
		WHERE id = $1`, p.ID, p.CurrentStock, p.TotalSold, p.TotalPurchased)
	if err != nil {
		return fmt.Errorf("repair product: %w", err)
	}
	return nil
}

func (r *Repository) RepairSupplier(ctx context.Context, agg CounterAggregate) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE suppliers
		SET total_orders = $2, total_purchase_amount = $3, current_balance = $4, updated_at = now()
		WHERE id = $1`, agg.ID, agg.ComputedOrders, agg.ComputedAmount, agg.ComputedBalance)
	if err != nil {
		return fmt.Errorf("repair supplier: %w", err)
	}
	return nil
}

func (r *Repository) RepairCustomer(ctx context.Context, agg CounterAggregate) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE customers
		SET total_orders = $2, total_sales_amount = $3, current_balance = $4, updated_at = now()
		WHERE id = $1`, agg.ID, agg.ComputedOrders, agg.ComputedAmount, agg.ComputedBalance)
	if err != nil {
		return fmt.Errorf("repair customer: %w", err)
	}
	return nil
}
