package ledger

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// RepositoryPort abstracts ledger reads for the service.
type RepositoryPort interface {
	List(ctx context.Context, f Filter) ([]Movement, int, error)
	ListForProduct(ctx context.Context, productID int64) ([]Movement, error)
	Summarize(ctx context.Context, f Filter, by GroupBy) ([]SummaryRow, error)
}

// Service serves ledger reads, caching summary aggregations.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	group singleflight.Group
}

// NewService builds Service.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// List returns filtered entries with the total count.
func (s *Service) List(ctx context.Context, f Filter) ([]Movement, int, error) {
	return s.repo.List(ctx, f)
}

// ListForProduct returns a product's full history in movement order.
func (s *Service) ListForProduct(ctx context.Context, productID int64) ([]Movement, error) {
	return s.repo.ListForProduct(ctx, productID)
}

// Summarize groups entries by the requested dimension. Results are cached and
// concurrent recomputations of the same key are collapsed.
func (s *Service) Summarize(ctx context.Context, f Filter, by GroupBy) ([]SummaryRow, error) {
	keyBase := fmt.Sprintf("ledger:summary:%s:%d:%d:%s:%s:%d:%d",
		by, f.ProductID, f.LocationID, f.Type, f.Reason, f.From.Unix(), f.To.Unix())
	key, err := s.cache.BuildKey(ctx, keyBase)
	if err != nil {
		return s.repo.Summarize(ctx, f, by)
	}

	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		var rows []SummaryRow
		err := s.cache.FetchJSON(ctx, key, &rows, func(ctx context.Context) (interface{}, error) {
			return s.repo.Summarize(ctx, f, by)
		})
		return rows, err
	})
	if err != nil {
		return nil, err
	}
	return result.([]SummaryRow), nil
}

// Invalidate drops cached summaries after an append.
func (s *Service) Invalidate(ctx context.Context) {
	_ = s.cache.Bump(ctx)
}
