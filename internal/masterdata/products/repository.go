package products

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradewind-erp/tradewind/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	GetBySKU(ctx context.Context, sku string) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
	Deactivate(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const productColumns = `id, sku, barcode, name, description, category_id, supplier_id, unit, cost_price, selling_price, current_stock, minimum_stock, total_sold, total_purchased, last_stock_update, is_perishable, expiry_date, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Barcode, &p.Name, &p.Description, &p.CategoryID, &p.SupplierID, &p.Unit,
		&p.CostPrice, &p.SellingPrice, &p.CurrentStock, &p.MinimumStock,
		&p.TotalSold, &p.TotalPurchased, &p.LastStockUpdate, &p.IsPerishable, &p.ExpiryDate, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

func buildWhere(filters shared.ListFilters) (string, []interface{}) {
	clause := ` WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filters.Search != "" {
		n++
		clause += ` AND (name ILIKE $` + strconv.Itoa(n) + ` OR sku ILIKE $` + strconv.Itoa(n) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.CategoryID != nil {
		n++
		clause += ` AND category_id = $` + strconv.Itoa(n)
		args = append(args, *filters.CategoryID)
	}
	if filters.IsActive != nil {
		n++
		clause += ` AND is_active = $` + strconv.Itoa(n)
		args = append(args, *filters.IsActive)
	}
	if filters.LowStock {
		clause += ` AND current_stock <= minimum_stock AND is_active`
	}
	return clause, args
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	where, args := buildWhere(filters)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
	if filters.Limit > 0 {
		query += ` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
		args = append(args, filters.Limit, filters.Offset())
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, p)
	}
	return result, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

func (r *repository) GetBySKU(ctx context.Context, sku string) (Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE sku = $1`, sku))
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, `INSERT INTO products
(sku, barcode, name, description, category_id, supplier_id, unit, cost_price, selling_price, current_stock, minimum_stock, is_perishable, expiry_date, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $11, $12, true, $13, $13)
RETURNING id`,
		product.SKU, product.Barcode, product.Name, product.Description, product.CategoryID, product.SupplierID, product.Unit,
		product.CostPrice, product.SellingPrice, product.MinimumStock, product.IsPerishable, product.ExpiryDate, now,
	).Scan(&product.ID)
	if isUniqueViolation(err) {
		return Product{}, shared.ErrDuplicate
	}
	if err != nil {
		return Product{}, err
	}
	product.IsActive = true
	product.CreatedAt = now
	product.UpdatedAt = now
	return product, nil
}

func (r *repository) Update(ctx context.Context, id int64, product Product) error {
	tag, err := r.db.Exec(ctx, `UPDATE products
SET sku = $1, barcode = $2, name = $3, description = $4, category_id = $5, supplier_id = $6, unit = $7, cost_price = $8, selling_price = $9, minimum_stock = $10, is_perishable = $11, expiry_date = $12, is_active = $13, updated_at = $14
WHERE id = $15`,
		product.SKU, product.Barcode, product.Name, product.Description, product.CategoryID, product.SupplierID, product.Unit,
		product.CostPrice, product.SellingPrice, product.MinimumStock, product.IsPerishable, product.ExpiryDate, product.IsActive, time.Now().UTC(), id)
	if isUniqueViolation(err) {
		return shared.ErrDuplicate
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET is_active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == shared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "sku":
		return "sku " + dir
	case "name":
		return "name " + dir
	case "currentStock":
		return "current_stock " + dir
	case "sellingPrice":
		return "selling_price " + dir
	case "createdAt":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
