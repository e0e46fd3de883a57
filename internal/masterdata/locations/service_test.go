package locations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tradewind-erp/tradewind/internal/masterdata/shared"
)

type memRepo struct {
	locations   map[int64]Location
	stock       map[int64]bool
	movements   map[int64]bool
	deactivated []int64
	nextID      int64
}

func newMemRepo() *memRepo {
	return &memRepo{locations: map[int64]Location{}, stock: map[int64]bool{}, movements: map[int64]bool{}, nextID: 1}
}

func (m *memRepo) List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error) {
	var out []Location
	for _, l := range m.locations {
		out = append(out, l)
	}
	return out, len(out), nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (Location, error) {
	l, ok := m.locations[id]
	if !ok {
		return Location{}, shared.ErrNotFound
	}
	return l, nil
}

func (m *memRepo) Create(ctx context.Context, location Location) (Location, error) {
	location.ID = m.nextID
	m.nextID++
	location.IsActive = true
	m.locations[location.ID] = location
	return location, nil
}

func (m *memRepo) Update(ctx context.Context, id int64, location Location) error {
	if _, ok := m.locations[id]; !ok {
		return shared.ErrNotFound
	}
	location.ID = id
	m.locations[id] = location
	return nil
}

func (m *memRepo) Deactivate(ctx context.Context, id int64) error {
	l, ok := m.locations[id]
	if !ok {
		return shared.ErrNotFound
	}
	l.IsActive = false
	m.locations[id] = l
	m.deactivated = append(m.deactivated, id)
	return nil
}

func (m *memRepo) HasStock(ctx context.Context, id int64) (bool, error) {
	return m.stock[id], nil
}

func (m *memRepo) HasMovements(ctx context.Context, id int64) (bool, error) {
	return m.movements[id], nil
}

func TestCreateNormalizesCode(t *testing.T) {
	svc := NewService(newMemRepo())

	loc, err := svc.Create(context.Background(), Location{Name: "Main Warehouse", Code: " wh-01 ", Type: TypeWarehouse})
	require.NoError(t, err)
	require.Equal(t, "WH-01", loc.Code)
}

func TestCreateRejectsUnknownType(t *testing.T) {
	svc := NewService(newMemRepo())

	_, err := svc.Create(context.Background(), Location{Name: "Depot", Code: "DP-01", Type: "depot"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeleteBlockedWhileStockRemains(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	loc, err := svc.Create(context.Background(), Location{Name: "Main Warehouse", Code: "WH-01", Type: TypeWarehouse})
	require.NoError(t, err)
	repo.stock[loc.ID] = true

	err = svc.Delete(context.Background(), loc.ID)
	require.ErrorIs(t, err, shared.ErrInUse)
	require.Empty(t, repo.deactivated)
	require.True(t, repo.locations[loc.ID].IsActive)
}

func TestDeleteBlockedByMovementHistory(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	loc, err := svc.Create(context.Background(), Location{Name: "Old Store", Code: "ST-09", Type: TypeStore})
	require.NoError(t, err)
	repo.movements[loc.ID] = true

	err = svc.Delete(context.Background(), loc.ID)
	require.ErrorIs(t, err, shared.ErrInUse)
	require.Empty(t, repo.deactivated)
}

func TestDeleteDeactivatesEmptyLocation(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	loc, err := svc.Create(context.Background(), Location{Name: "Shopfront", Code: "SF-01", Type: TypeStore})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), loc.ID))
	require.Equal(t, []int64{loc.ID}, repo.deactivated)
	require.False(t, repo.locations[loc.ID].IsActive)
}

func TestCreateRequiresNameAndCode(t *testing.T) {
	svc := NewService(newMemRepo())

	_, err := svc.Create(context.Background(), Location{Name: "   ", Code: "WH-01", Type: TypeWarehouse})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), Location{Name: "Warehouse", Code: "  ", Type: TypeWarehouse})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRejectsNegativeCapacity(t *testing.T) {
	svc := NewService(newMemRepo())

	capacity := int64(-5)
	_, err := svc.Create(context.Background(), Location{Name: "Annex", Code: "AX-01", Type: TypeWarehouse, Capacity: &capacity})
	require.ErrorIs(t, err, shared.ErrValidation)
}
