package locations

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
	List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error)
	Get(ctx context.Context, id int64) (Location, error)
	Create(ctx context.Context, location Location) (Location, error)
	Update(ctx context.Context, id int64, location Location) error
	Deactivate(ctx context.Context, id int64) error
	// HasStock reports whether any stock level rows reference the location.
	HasStock(ctx context.Context, id int64) (bool, error)
	// HasMovements reports whether any ledger entry references the location
	// as either endpoint of a transfer.
	HasMovements(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// utilization is folded in at read time so the field can never drift from
// the stock_levels table.
const locationColumns = `l.id, l.name, l.code, l.type, l.description, l.address, l.capacity,
COALESCE((SELECT SUM(sl.quantity) FROM stock_levels sl WHERE sl.location_id = l.id), 0),
l.is_active, l.created_at, l.updated_at`

func scanLocation(row pgx.Row) (Location, error) {
	var l Location
	err := row.Scan(&l.ID, &l.Name, &l.Code, &l.Type, &l.Description, &l.Address, &l.Capacity,
		&l.CurrentUtilization, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Location{}, shared.ErrNotFound
	}
	return l, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	n := 0
	if filters.Search != "" {
		n++
		where += ` AND (l.name ILIKE $` + strconv.Itoa(n) + ` OR l.code ILIKE $` + strconv.Itoa(n) + ` OR l.address ILIKE $` + strconv.Itoa(n) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		n++
		where += ` AND l.is_active = $` + strconv.Itoa(n)
		args = append(args, *filters.IsActive)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM locations l`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + locationColumns + ` FROM locations l` + where + ` ORDER BY l.name ASC`
	if filters.Limit > 0 {
		query += ` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
		args = append(args, filters.Limit, filters.Offset())
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, l)
	}
	return result, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Location, error) {
	return scanLocation(r.db.QueryRow(ctx, `SELECT `+locationColumns+` FROM locations l WHERE l.id = $1`, id))
}

func (r *repository) Create(ctx context.Context, location Location) (Location, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, `INSERT INTO locations (name, code, type, description, address, capacity, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, true, $7, $7) RETURNING id`,
		location.Name, location.Code, location.Type, location.Description, location.Address, location.Capacity, now).Scan(&location.ID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return Location{}, shared.ErrDuplicate
	}
	if err != nil {
		return Location{}, err
	}
	location.IsActive = true
	location.CreatedAt = now
	location.UpdatedAt = now
	return location, nil
}

func (r *repository) Update(ctx context.Context, id int64, location Location) error {
	tag, err := r.db.Exec(ctx, `UPDATE locations SET name = $1, code = $2, type = $3, description = $4, address = $5, capacity = $6, is_active = $7, updated_at = $8 WHERE id = $9`,
		location.Name, location.Code, location.Type, location.Description, location.Address, location.Capacity, location.IsActive, time.Now().UTC(), id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
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
	tag, err := r.db.Exec(ctx, `UPDATE locations SET is_active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) HasStock(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stock_levels WHERE location_id = $1 AND quantity > 0)`, id).Scan(&exists)
	return exists, err
}

func (r *repository) HasMovements(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stock_movements WHERE from_location_id = $1 OR to_location_id = $1)`, id).Scan(&exists)
	return exists, err
}
