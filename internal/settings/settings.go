// Package settings manages the single company-wide settings record: business
// identity shown on documents and the default currency.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/currency"

	"github.com/tradewind-erp/tradewind/internal/platform/httpx"
)

// Settings is the single-row company configuration.
type Settings struct {
	CompanyName string
	Email       string
	Phone       string
	Address     string
	Currency    string
	UpdatedAt   time.Time
}

// ErrInvalidCurrency rejects currency codes outside ISO 4217.
var ErrInvalidCurrency = errors.New("settings: unknown currency code")

// RepositoryPort abstracts settings persistence.
type RepositoryPort interface {
	Get(ctx context.Context) (Settings, error)
	Upsert(ctx context.Context, s Settings) (Settings, error)
	SeedIfEmpty(ctx context.Context, s Settings) error
}

// Service exposes the settings operations.
type Service struct {
	repo RepositoryPort
	log  *slog.Logger
}

// NewService constructs the settings service.
func NewService(repo RepositoryPort, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Get returns the current settings.
func (s *Service) Get(ctx context.Context) (Settings, error) {
	out, err := s.repo.Get(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: get: %w", err)
	}
	return out, nil
}

// UpdateInput carries the editable settings fields.
type UpdateInput struct {
	CompanyName string
	Email       string
	Phone       string
	Address     string
	Currency    string
}

// Update validates and persists new settings.
func (s *Service) Update(ctx context.Context, in UpdateInput) (Settings, error) {
	if in.CompanyName == "" {
		return Settings{}, fmt.Errorf("settings: company name required: %w", httpx.ErrValidation)
	}
	code := in.Currency
	if code == "" {
		code = "USD"
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return Settings{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, in.Currency)
	}
	out, err := s.repo.Upsert(ctx, Settings{
		CompanyName: in.CompanyName,
		Email:       in.Email,
		Phone:       in.Phone,
		Address:     in.Address,
		Currency:    unit.String(),
		UpdatedAt:   time.Now(),
	})
	if err != nil {
		return Settings{}, fmt.Errorf("settings: update: %w", err)
	}
	if s.log != nil {
		s.log.Info("settings updated", slog.String("company", out.CompanyName), slog.String("currency", out.Currency))
	}
	return out, nil
}

// Seed writes the defaults once, on first boot. Existing settings win over
// environment values.
func (s *Service) Seed(ctx context.Context, defaults Settings) error {
	if defaults.CompanyName == "" {
		return nil
	}
	if defaults.Currency == "" {
		defaults.Currency = "USD"
	}
	if _, err := currency.ParseISO(defaults.Currency); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, defaults.Currency)
	}
	defaults.UpdatedAt = time.Now()
	if err := s.repo.SeedIfEmpty(ctx, defaults); err != nil {
		return fmt.Errorf("settings: seed: %w", err)
	}
	return nil
}
