package locations

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Location, error) {
	if id <= 0 {
		return Location{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, location Location) (Location, error) {
	if err := normalize(&location); err != nil {
		return Location{}, err
	}
	return s.repo.Create(ctx, location)
}

func (s *Service) Update(ctx context.Context, id int64, location Location) (Location, error) {
	if id <= 0 {
		return Location{}, shared.ErrInvalidID
	}
	if err := normalize(&location); err != nil {
		return Location{}, err
	}
	if err := s.repo.Update(ctx, id, location); err != nil {
		return Location{}, err
	}
	return s.repo.Get(ctx, id)
}

func normalize(location *Location) error {
	location.Name = strings.TrimSpace(location.Name)
	location.Code = strings.ToUpper(strings.TrimSpace(location.Code))
	if location.Name == "" || location.Code == "" {
		return shared.ErrValidation
	}
	if !validType(location.Type) {
		return shared.ErrValidation
	}
	if location.Capacity != nil && *location.Capacity < 0 {
		return shared.ErrValidation
	}
	return nil
}

// Delete deactivates the location. A location still holding stock, or one
// referenced by any ledger entry, cannot be removed; stock has to be
// transferred out first and movement history is permanent.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	holds, err := s.repo.HasStock(ctx, id)
	if err != nil {
		return err
	}
	if holds {
		return shared.ErrInUse
	}
	referenced, err := s.repo.HasMovements(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return shared.ErrInUse
	}
	return s.repo.Deactivate(ctx, id)
}
