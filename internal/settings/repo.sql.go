package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradewind-erp/tradewind/internal/platform/httpx"
)

// Repository persists the single settings row.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get loads the settings row.
func (r *Repository) Get(ctx context.Context) (Settings, error) {
	var s Settings
	err := r.pool.QueryRow(ctx, `
		SELECT company_name, email, phone, address, currency, updated_at
		FROM settings WHERE id = 1`).
		Scan(&s.CompanyName, &s.Email, &s.Phone, &s.Address, &s.Currency, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Settings{}, httpx.ErrNotFound
	}
	if err != nil {
		return Settings{}, fmt.Errorf("settings: select: %w", err)
	}
	return s, nil
}

// Upsert writes the settings row, creating it when absent.
func (r *Repository) Upsert(ctx context.Context, s Settings) (Settings, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO settings (id, company_name, email, phone, address, currency, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			email        = EXCLUDED.email,
			phone        = EXCLUDED.phone,
			address      = EXCLUDED.address,
			currency     = EXCLUDED.currency,
			updated_at   = EXCLUDED.updated_at`,
		s.CompanyName, s.Email, s.Phone, s.Address, s.Currency, s.UpdatedAt)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: upsert: %w", err)
	}
	return s, nil
}

// SeedIfEmpty inserts the row only when none exists yet.
func (r *Repository) SeedIfEmpty(ctx context.Context, s Settings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO settings (id, company_name, email, phone, address, currency, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		s.CompanyName, s.Email, s.Phone, s.Address, s.Currency, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("settings: seed: %w", err)
	}
	return nil
}
