package ledger

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	entries        []Movement
	summaryRows    []SummaryRow
	summarizeCalls int
}

func (m *mockRepo) List(ctx context.Context, f Filter) ([]Movement, int, error) {
	return m.entries, len(m.entries), nil
}

func (m *mockRepo) ListForProduct(ctx context.Context, productID int64) ([]Movement, error) {
	var out []Movement
	for _, e := range m.entries {
		if e.ProductID == productID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockRepo) Summarize(ctx context.Context, f Filter, by GroupBy) ([]SummaryRow, error) {
	m.summarizeCalls++
	return m.summaryRows, nil
}

func newCachedService(t *testing.T, repo *mockRepo) (*Service, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	return NewService(repo, cache), cache
}

func TestSummarizeCachesResults(t *testing.T) {
	repo := &mockRepo{summaryRows: []SummaryRow{
		{Key: "in", Movements: 3, Quantity: 120, TotalCost: decimal.NewFromInt(500)},
		{Key: "out", Movements: 2, Quantity: 40, TotalCost: decimal.NewFromInt(180)},
	}}
	svc, _ := newCachedService(t, repo)
	ctx := context.Background()

	first, err := svc.Summarize(ctx, Filter{}, GroupByType)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Equal(t, 1, repo.summarizeCalls)

	second, err := svc.Summarize(ctx, Filter{}, GroupByType)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, repo.summarizeCalls)
}

func TestInvalidateBustsSummaryCache(t *testing.T) {
	repo := &mockRepo{summaryRows: []SummaryRow{{Key: "sale", Movements: 1, Quantity: 10}}}
	svc, _ := newCachedService(t, repo)
	ctx := context.Background()

	_, err := svc.Summarize(ctx, Filter{}, GroupByReason)
	require.NoError(t, err)
	require.Equal(t, 1, repo.summarizeCalls)

	svc.Invalidate(ctx)

	repo.summaryRows = []SummaryRow{{Key: "sale", Movements: 2, Quantity: 25}}
	rows, err := svc.Summarize(ctx, Filter{}, GroupByReason)
	require.NoError(t, err)
	require.Equal(t, 2, repo.summarizeCalls)
	require.Equal(t, int64(25), rows[0].Quantity)
}

func TestSummarizeDistinctFiltersUseDistinctKeys(t *testing.T) {
	repo := &mockRepo{summaryRows: []SummaryRow{{Key: "1", Movements: 1}}}
	svc, _ := newCachedService(t, repo)
	ctx := context.Background()

	_, err := svc.Summarize(ctx, Filter{ProductID: 1}, GroupByProduct)
	require.NoError(t, err)
	_, err = svc.Summarize(ctx, Filter{ProductID: 2}, GroupByProduct)
	require.NoError(t, err)
	require.Equal(t, 2, repo.summarizeCalls)
}
