package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradewind-erp/tradewind/internal/ledger"
)

// RepositoryPort opens stock transactions. Workflows that need stock side
// effects inside their own transaction wrap a pgx.Tx with NewTx instead.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

// Repository implements RepositoryPort on a pgx pool.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("begin stock tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, NewTx(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Levels reads the location breakdown for one product outside a transaction.
func (r *Repository) Levels(ctx context.Context, productID int64) ([]Level, error) {
	rows, err := r.pool.Query(ctx, `SELECT location_id, quantity FROM stock_levels WHERE product_id = $1 ORDER BY location_id`, productID)
	if err != nil {
		return nil, fmt.Errorf("get stock levels %d: %w", productID, err)
	}
	defer rows.Close()

	var levels []Level
	for rows.Next() {
		var l Level
		if err := rows.Scan(&l.LocationID, &l.Quantity); err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

// Tx implements TxRepository over one pgx transaction.
type Tx struct {
	tx pgx.Tx
}

// NewTx wraps an open transaction so other workflows can share it.
func NewTx(tx pgx.Tx) *Tx {
	return &Tx{tx: tx}
}

func (t *Tx) LockProduct(ctx context.Context, productID int64) error {
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, productID)
	if err != nil {
		return fmt.Errorf("lock product %d: %w", productID, err)
	}
	return nil
}

func (t *Tx) GetProductState(ctx context.Context, productID int64) (ProductState, error) {
	var s ProductState
	err := t.tx.QueryRow(ctx, `SELECT id, sku, name, current_stock, minimum_stock, cost_price, total_sold, total_purchased, last_stock_update
FROM products WHERE id = $1 AND is_active FOR UPDATE`, productID).
		Scan(&s.ID, &s.SKU, &s.Name, &s.CurrentStock, &s.MinimumStock, &s.CostPrice, &s.TotalSold, &s.TotalPurchased, &s.LastStockUpdate)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductState{}, fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	}
	if err != nil {
		return ProductState{}, fmt.Errorf("get product state %d: %w", productID, err)
	}
	return s, nil
}

func (t *Tx) SaveProductState(ctx context.Context, s ProductState) error {
	_, err := t.tx.Exec(ctx, `UPDATE products
SET current_stock = $2, total_sold = $3, total_purchased = $4, last_stock_update = $5, updated_at = now()
WHERE id = $1`, s.ID, s.CurrentStock, s.TotalSold, s.TotalPurchased, s.LastStockUpdate)
	if err != nil {
		return fmt.Errorf("save product state %d: %w", s.ID, err)
	}
	return nil
}

func (t *Tx) AdjustTotalSold(ctx context.Context, productID, delta int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE products SET total_sold = GREATEST(total_sold + $2, 0), updated_at = now() WHERE id = $1`, productID, delta)
	if err != nil {
		return fmt.Errorf("adjust total sold %d: %w", productID, err)
	}
	return nil
}

func (t *Tx) AdjustTotalPurchased(ctx context.Context, productID, delta int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE products SET total_purchased = GREATEST(total_purchased + $2, 0), updated_at = now() WHERE id = $1`, productID, delta)
	if err != nil {
		return fmt.Errorf("adjust total purchased %d: %w", productID, err)
	}
	return nil
}

func (t *Tx) GetLevels(ctx context.Context, productID int64) ([]Level, error) {
	rows, err := t.tx.Query(ctx, `SELECT location_id, quantity FROM stock_levels WHERE product_id = $1 ORDER BY location_id`, productID)
	if err != nil {
		return nil, fmt.Errorf("get stock levels %d: %w", productID, err)
	}
	defer rows.Close()

	var levels []Level
	for rows.Next() {
		var l Level
		if err := rows.Scan(&l.LocationID, &l.Quantity); err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

func (t *Tx) SetLevel(ctx context.Context, productID, locationID, quantity int64) error {
	if quantity == 0 {
		_, err := t.tx.Exec(ctx, `DELETE FROM stock_levels WHERE product_id = $1 AND location_id = $2`, productID, locationID)
		if err != nil {
			return fmt.Errorf("clear stock level: %w", err)
		}
		return nil
	}
	_, err := t.tx.Exec(ctx, `INSERT INTO stock_levels (product_id, location_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (product_id, location_id) DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`, productID, locationID, quantity)
	if err != nil {
		return fmt.Errorf("set stock level: %w", err)
	}
	return nil
}

func (t *Tx) LocationExists(ctx context.Context, locationID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM locations WHERE id = $1 AND is_active)`, locationID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check location %d: %w", locationID, err)
	}
	return exists, nil
}

func (t *Tx) AppendMovement(ctx context.Context, m ledger.Movement) (ledger.Movement, error) {
	return ledger.Append(ctx, t.tx, m)
}
