package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tradewind-erp/tradewind/internal/platform/httpx"
)

type memRepo struct {
	stored *Settings
}

func (m *memRepo) Get(ctx context.Context) (Settings, error) {
	if m.stored == nil {
		return Settings{}, httpx.ErrNotFound
	}
	return *m.stored, nil
}

func (m *memRepo) Upsert(ctx context.Context, s Settings) (Settings, error) {
	m.stored = &s
	return s, nil
}

func (m *memRepo) SeedIfEmpty(ctx context.Context, s Settings) error {
	if m.stored == nil {
		m.stored = &s
	}
	return nil
}

func TestUpdateNormalisesCurrency(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, nil)

	out, err := svc.Update(context.Background(), UpdateInput{CompanyName: "Tradewind Goods", Currency: "eur"})
	require.NoError(t, err)
	require.Equal(t, "EUR", out.Currency)
	require.Equal(t, "Tradewind Goods", repo.stored.CompanyName)
}

func TestUpdateRejectsUnknownCurrency(t *testing.T) {
	svc := NewService(&memRepo{}, nil)

	_, err := svc.Update(context.Background(), UpdateInput{CompanyName: "Tradewind Goods", Currency: "ZZZ"})
	require.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestUpdateDefaultsCurrency(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, nil)

	out, err := svc.Update(context.Background(), UpdateInput{CompanyName: "Tradewind Goods"})
	require.NoError(t, err)
	require.Equal(t, "USD", out.Currency)
}

func TestSeedDoesNotOverwrite(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, nil)

	require.NoError(t, svc.Seed(context.Background(), Settings{CompanyName: "From Env", Currency: "USD"}))
	_, err := svc.Update(context.Background(), UpdateInput{CompanyName: "Edited", Currency: "USD"})
	require.NoError(t, err)

	require.NoError(t, svc.Seed(context.Background(), Settings{CompanyName: "From Env Again", Currency: "USD"}))
	got, err := svc.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Edited", got.CompanyName)
}

func TestSeedSkipsWhenUnconfigured(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, nil)

	require.NoError(t, svc.Seed(context.Background(), Settings{}))
	_, err := svc.Get(context.Background())
	require.True(t, errors.Is(err, httpx.ErrNotFound))
}
