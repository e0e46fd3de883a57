package products

import (
	"context"
	"strings"

	"github.com/tradewind-erp/tradewind/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NormalizeSKU canonicalizes user input so lookups and uniqueness are
// case-insensitive.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// normalizeBarcode trims whitespace and maps empty input to NULL so the
// unique index ignores products without one.
func normalizeBarcode(barcode *string) *string {
	if barcode == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*barcode)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) GetBySKU(ctx context.Context, sku string) (Product, error) {
	return s.repo.GetBySKU(ctx, NormalizeSKU(sku))
}

func (s *Service) Create(ctx context.Context, product Product) (Product, error) {
	product.SKU = NormalizeSKU(product.SKU)
	product.Name = strings.TrimSpace(product.Name)
	product.Barcode = normalizeBarcode(product.Barcode)
	if product.SKU == "" || product.Name == "" {
		return Product{}, shared.ErrValidation
	}
	return s.repo.Create(ctx, product)
}

func (s *Service) Update(ctx context.Context, id int64, product Product) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrInvalidID
	}
	product.SKU = NormalizeSKU(product.SKU)
	product.Name = strings.TrimSpace(product.Name)
	product.Barcode = normalizeBarcode(product.Barcode)
	if product.SKU == "" || product.Name == "" {
		return Product{}, shared.ErrValidation
	}
	if err := s.repo.Update(ctx, id, product); err != nil {
		return Product{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete deactivates the product. Rows are never removed so the movement
// ledger keeps resolving its product references.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Deactivate(ctx, id)
}

// LowStock lists active products at or below their minimum threshold.
func (s *Service) LowStock(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	filters.LowStock = true
	return s.repo.List(ctx, filters)
}
