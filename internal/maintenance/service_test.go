package maintenance

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tradewind-erp/tradewind/internal/ledger"
)

type memRepo struct {
	products  []ProductState
	movements map[int64][]ledger.Movement
	sold      map[int64]int64
	received  map[int64]int64
	levels    map[int64]LevelAggregate
	suppliers []CounterAggregate
	customers []CounterAggregate

	repairedProducts  []ProductState
	repairedSuppliers []CounterAggregate
	repairedCustomers []CounterAggregate
}

func (m *memRepo) ProductStates(ctx context.Context) ([]ProductState, error) {
	return m.products, nil
}

func (m *memRepo) ProductMovements(ctx context.Context, productID int64) ([]ledger.Movement, error) {
	return m.movements[productID], nil
}

func (m *memRepo) SoldQuantities(ctx context.Context) (map[int64]int64, error) {
	return m.sold, nil
}

func (m *memRepo) ReceivedQuantities(ctx context.Context) (map[int64]int64, error) {
	return m.received, nil
}

func (m *memRepo) LevelAggregates(ctx context.Context) (map[int64]LevelAggregate, error) {
	return m.levels, nil
}

func (m *memRepo) SupplierAggregates(ctx context.Context) ([]CounterAggregate, error) {
	return m.suppliers, nil
}

func (m *memRepo) CustomerAggregates(ctx context.Context) ([]CounterAggregate, error) {
	return m.customers, nil
}

func (m *memRepo) RepairProduct(ctx context.Context, p ProductState) error {
	m.repairedProducts = append(m.repairedProducts, p)
	return nil
}

func (m *memRepo) RepairSupplier(ctx context.Context, agg CounterAggregate) error {
	m.repairedSuppliers = append(m.repairedSuppliers, agg)
	return nil
}

func (m *memRepo) RepairCustomer(ctx context.Context, agg CounterAggregate) error {
	m.repairedCustomers = append(m.repairedCustomers, agg)
	return nil
}

func move(id int64, t ledger.MovementType, qty, prev, next int64) ledger.Movement {
	return ledger.Movement{ID: id, ProductID: 1, Type: t, Quantity: qty, PreviousStock: prev, NewStock: next}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func cleanAggregate(id int64) CounterAggregate {
	return CounterAggregate{
		ID:           id,
		StoredOrders: 2, ComputedOrders: 2,
		StoredAmount: dec("100"), ComputedAmount: dec("100"),
		StoredBalance: dec("40"), ComputedBalance: dec("40"),
	}
}

func TestVerifyCleanCounters(t *testing.T) {
	repo := &memRepo{
		products: []ProductState{{ID: 1, CurrentStock: 45, TotalSold: 5, TotalPurchased: 50}},
		movements: map[int64][]ledger.Movement{1: {
			move(1, ledger.TypeIn, 50, 0, 50),
			move(2, ledger.TypeOut, 5, 50, 45),
		}},
		sold:      map[int64]int64{1: 5},
		received:  map[int64]int64{1: 50},
		levels:    map[int64]LevelAggregate{1: {Sum: 45}},
		suppliers: []CounterAggregate{cleanAggregate(1)},
		customers: []CounterAggregate{cleanAggregate(1)},
	}
	svc := NewService(repo, nil, nil)

	report, err := svc.VerifyCounters(context.Background(), false)
	require.NoError(t, err)
	require.Empty(t, report.Drifts)
	require.Equal(t, 1, report.Products)
	require.Equal(t, 1, report.Suppliers)
	require.Equal(t, 1, report.Customers)
}

func TestVerifyDetectsStockDrift(t *testing.T) {
	repo := &memRepo{
		products: []ProductState{{ID: 1, CurrentStock: 40, TotalSold: 5, TotalPurchased: 50}},
		movements: map[int64][]ledger.Movement{1: {
			move(1, ledger.TypeIn, 50, 0, 50),
			move(2, ledger.TypeOut, 5, 50, 45),
		}},
		sold:     map[int64]int64{1: 5},
		received: map[int64]int64{1: 50},
	}
	svc := NewService(repo, nil, nil)

	report, err := svc.VerifyCounters(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, report.Drifts, 1)
	require.Equal(t, "current_stock", report.Drifts[0].Field)
	require.Equal(t, "40", report.Drifts[0].Stored)
	require.Equal(t, "45", report.Drifts[0].Computed)
	require.Empty(t, repo.repairedProducts)
}

func TestVerifyRepairsProductCounters(t *testing.T) {
	repo := &memRepo{
		products: []ProductState{{ID: 1, CurrentStock: 40, TotalSold: 9, TotalPurchased: 50}},
		movements: map[int64][]ledger.Movement{1: {
			move(1, ledger.TypeIn, 50, 0, 50),
			move(2, ledger.TypeOut, 5, 50, 45),
		}},
		sold:     map[int64]int64{1: 5},
		received: map[int64]int64{1: 50},
	}
	svc := NewService(repo, nil, nil)

	report, err := svc.VerifyCounters(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, report.Drifts, 2)
	require.Len(t, repo.repairedProducts, 1)
	require.Equal(t, ProductState{ID: 1, CurrentStock: 45, TotalSold: 5, TotalPurchased: 50}, repo.repairedProducts[0])
}

func TestVerifyFlagsBrokenLedgerChain(t *testing.T) {
	repo := &memRepo{
		products: []ProductState{{ID: 1, CurrentStock: 45, TotalSold: 0, TotalPurchased: 0}},
		movements: map[int64][]ledger.Movement{1: {
			move(1, ledger.TypeIn, 50, 0, 50),
			move(2, ledger.TypeOut, 5, 48, 43),
		}},
	}
	svc := NewService(repo, nil, nil)

	report, err := svc.VerifyCounters(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, report.Drifts, 1)
	require.Equal(t, "ledger_chain", report.Drifts[0].Field)
	require.Empty(t, repo.repairedProducts)
}

func TestVerifyRepairsSupplierAndCustomer(t *testing.T) {
	supplier := cleanAggregate(7)
	supplier.StoredBalance = dec("55")
	customer := cleanAggregate(9)
	customer.StoredOrders = 3
	repo := &memRepo{
		suppliers: []CounterAggregate{supplier},
		customers: []CounterAggregate{customer},
	}
	svc := NewService(repo, nil, nil)

	report, err := svc.VerifyCounters(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, report.Drifts, 2)
	require.Len(t, repo.repairedSuppliers, 1)
	require.Equal(t, int64(7), repo.repairedSuppliers[0].ID)
	require.Len(t, repo.repairedCustomers, 1)
	require.Equal(t, int64(9), repo.repairedCustomers[0].ID)
}

func TestVerifyDetectsLevelSumDrift(t *testing.T) {
	repo := &memRepo{
		products: []ProductState{{ID: 1, CurrentStock: 20, TotalSold: 10, TotalPurchased: 30}},
		movements: map[int64][]ledger.Movement{1: {
			move(1, ledger.TypeIn, 30, 0, 30),
			move(2, ledger.TypeOut, 10, 30, 20),
		}},
		sold:     map[int64]int64{1: 10},
		received: map[int64]int64{1: 30},
		levels:   map[int64]LevelAggregate{1: {Sum: 30}},
	}
	svc := NewService(repo, nil, nil)

	report, err := svc.VerifyCounters(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, report.Drifts, 1)
	require.Equal(t, "level_sum", report.Drifts[0].Field)
	require.Equal(t, "30", report.Drifts[0].Stored)
	require.Equal(t, "20", report.Drifts[0].Computed)
}

func TestVerifyFlagsZeroLevelRows(t *testing.T) {
	repo := &memRepo{
		products: []ProductState{{ID: 1, CurrentStock: 12, TotalSold: 0, TotalPurchased: 0}},
		levels:   map[int64]LevelAggregate{1: {Sum: 12, ZeroRows: 2}},
	}
	svc := NewService(repo, nil, nil)

	report, err := svc.VerifyCounters(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, report.Drifts, 1)
	require.Equal(t, "zero_level_rows", report.Drifts[0].Field)
	require.Equal(t, "2", report.Drifts[0].Stored)
}

func TestVerifySkipsStockWithoutMovements(t *testing.T) {
	repo := &memRepo{
		products: []ProductState{{ID: 1, CurrentStock: 12, TotalSold: 0, TotalPurchased: 0}},
	}
	svc := NewService(repo, nil, nil)

	report, err := svc.VerifyCounters(context.Background(), false)
	require.NoError(t, err)
	require.Empty(t, report.Drifts)
}
