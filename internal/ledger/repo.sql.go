package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queryer is the subset of pgx used by Append, satisfied by both pgx.Tx and
// *pgxpool.Pool so appends can join a workflow transaction.
type Queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Append inserts one ledger entry and returns it with id and movement date
// assigned. The ledger never rejects a well-formed record; storage failures
// surface as ErrWriteFailed.
func Append(ctx context.Context, q Queryer, m Movement) (Movement, error) {
	var refJSON any
	if m.Reference != nil {
		data, err := json.Marshal(m.Reference)
		if err != nil {
			return Movement{}, fmt.Errorf("%w: encode reference: %v", ErrWriteFailed, err)
		}
		refJSON = data
	}
	if m.MovementDate.IsZero() {
		m.MovementDate = time.Now().UTC()
	}
	err := q.QueryRow(ctx, `INSERT INTO stock_movements
(product_id, movement_type, reason, quantity, previous_stock, new_stock, unit_cost, total_cost, from_location_id, to_location_id, reference, performed_by, movement_date, notes)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING id`,
		m.ProductID, string(m.Type), string(m.Reason), m.Quantity, m.PreviousStock, m.NewStock,
		m.UnitCost, m.TotalCost, m.FromLocationID, m.ToLocationID, refJSON, m.PerformedBy, m.MovementDate, m.Notes,
	).Scan(&m.ID)
	if err != nil {
		return Movement{}, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return m, nil
}

// Repository reads the ledger from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const movementColumns = `id, product_id, movement_type, reason, quantity, previous_stock, new_stock, unit_cost, total_cost, from_location_id, to_location_id, reference, performed_by, movement_date, notes`

func scanMovement(row pgx.Row) (Movement, error) {
	var m Movement
	var refJSON []byte
	err := row.Scan(&m.ID, &m.ProductID, &m.Type, &m.Reason, &m.Quantity, &m.PreviousStock, &m.NewStock,
		&m.UnitCost, &m.TotalCost, &m.FromLocationID, &m.ToLocationID, &refJSON, &m.PerformedBy, &m.MovementDate, &m.Notes)
	if err != nil {
		return Movement{}, err
	}
	if len(refJSON) > 0 {
		var ref Reference
		if err := json.Unmarshal(refJSON, &ref); err == nil {
			m.Reference = &ref
		}
	}
	return m, nil
}

func (f Filter) where() (string, []any) {
	clause := ` WHERE 1=1`
	args := []any{}
	n := 0
	add := func(cond string, val any) {
		n++
		clause += cond + strconv.Itoa(n)
		args = append(args, val)
	}
	if f.ProductID != 0 {
		add(` AND product_id=$`, f.ProductID)
	}
	if f.LocationID != 0 {
		n++
		p := strconv.Itoa(n)
		clause += ` AND (from_location_id=$` + p + ` OR to_location_id=$` + p + `)`
		args = append(args, f.LocationID)
	}
	if f.Type != "" {
		add(` AND movement_type=$`, string(f.Type))
	}
	if f.Reason != "" {
		add(` AND reason=$`, string(f.Reason))
	}
	if !f.From.IsZero() {
		add(` AND movement_date >= $`, f.From)
	}
	if !f.To.IsZero() {
		add(` AND movement_date <= $`, f.To)
	}
	return clause, args
}

// List returns filtered entries newest-first along with the total count.
func (r *Repository) List(ctx context.Context, f Filter) ([]Movement, int, error) {
	where, args := f.where()

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	query := `SELECT ` + movementColumns + ` FROM stock_movements` + where +
		` ORDER BY movement_date DESC, id DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	movements := []Movement{}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, 0, err
		}
		movements = append(movements, m)
	}
	return movements, total, rows.Err()
}

// ListForProduct returns every entry for one product in movement order,
// oldest first, for replay verification.
func (r *Repository) ListForProduct(ctx context.Context, productID int64) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+movementColumns+` FROM stock_movements WHERE product_id=$1 ORDER BY movement_date ASC, id ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := []Movement{}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// Summarize groups filtered entries by the requested dimension.
func (r *Repository) Summarize(ctx context.Context, f Filter, by GroupBy) ([]SummaryRow, error) {
	var key string
	switch by {
	case GroupByType:
		key = `movement_type`
	case GroupByReason:
		key = `reason`
	case GroupByProduct:
		key = `product_id::text`
	case GroupByLocation:
		key = `COALESCE(to_location_id, from_location_id, 0)::text`
	case GroupByDay:
		key = `to_char(movement_date, 'YYYY-MM-DD')`
	default:
		return nil, fmt.Errorf("ledger: unknown summary dimension %q", by)
	}

	where, args := f.where()
	rows, err := r.pool.Query(ctx, `SELECT `+key+` AS k, COUNT(*), COALESCE(SUM(quantity),0), COALESCE(SUM(total_cost),0)
FROM stock_movements`+where+` GROUP BY k ORDER BY k`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := []SummaryRow{}
	for rows.Next() {
		var row SummaryRow
		if err := rows.Scan(&row.Key, &row.Movements, &row.Quantity, &row.TotalCost); err != nil {
			return nil, err
		}
		summary = append(summary, row)
	}
	return summary, rows.Err()
}
