package stock

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tradewind-erp/tradewind/internal/ledger"
)

type memoryRepo struct {
	products  map[int64]ProductState
	levels    map[int64]map[int64]int64
	locations map[int64]bool
	movements []ledger.Movement
	nextID    int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products:  make(map[int64]ProductState),
		levels:    make(map[int64]map[int64]int64),
		locations: map[int64]bool{1: true, 2: true, 3: true},
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) Levels(ctx context.Context, productID int64) ([]Level, error) {
	return (&memoryTx{repo: r}).GetLevels(ctx, productID)
}

func (tx *memoryTx) LockProduct(ctx context.Context, productID int64) error { return nil }

func (tx *memoryTx) GetProductState(ctx context.Context, productID int64) (ProductState, error) {
	state, ok := tx.repo.products[productID]
	if !ok {
		return ProductState{}, ErrProductNotFound
	}
	return state, nil
}

func (tx *memoryTx) SaveProductState(ctx context.Context, state ProductState) error {
	tx.repo.products[state.ID] = state
	return nil
}

func (tx *memoryTx) AdjustTotalSold(ctx context.Context, productID, delta int64) error {
	state := tx.repo.products[productID]
	state.TotalSold += delta
	if state.TotalSold < 0 {
		state.TotalSold = 0
	}
	tx.repo.products[productID] = state
	return nil
}

func (tx *memoryTx) AdjustTotalPurchased(ctx context.Context, productID, delta int64) error {
	state := tx.repo.products[productID]
	state.TotalPurchased += delta
	if state.TotalPurchased < 0 {
		state.TotalPurchased = 0
	}
	tx.repo.products[productID] = state
	return nil
}

func (tx *memoryTx) GetLevels(ctx context.Context, productID int64) ([]Level, error) {
	buckets := tx.repo.levels[productID]
	levels := make([]Level, 0, len(buckets))
	for _, locID := range []int64{1, 2, 3} {
		if qty, ok := buckets[locID]; ok {
			levels = append(levels, Level{LocationID: locID, Quantity: qty})
		}
	}
	return levels, nil
}

func (tx *memoryTx) SetLevel(ctx context.Context, productID, locationID, quantity int64) error {
	buckets := tx.repo.levels[productID]
	if buckets == nil {
		buckets = make(map[int64]int64)
		tx.repo.levels[productID] = buckets
	}
	if quantity == 0 {
		delete(buckets, locationID)
		return nil
	}
	buckets[locationID] = quantity
	return nil
}

func (tx *memoryTx) LocationExists(ctx context.Context, locationID int64) (bool, error) {
	return tx.repo.locations[locationID], nil
}

func (tx *memoryTx) AppendMovement(ctx context.Context, m ledger.Movement) (ledger.Movement, error) {
	tx.repo.nextID++
	m.ID = tx.repo.nextID
	if m.MovementDate.IsZero() {
		m.MovementDate = time.Now().UTC()
	}
	tx.repo.movements = append(tx.repo.movements, m)
	return m, nil
}

type noopCache struct{}

func (noopCache) Invalidate(ctx context.Context) {}

func newTestService(repo *memoryRepo) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, repo, noopCache{}, log)
}

func seedProduct(repo *memoryRepo, id, stock int64) {
	repo.products[id] = ProductState{ID: id, SKU: "SKU-001", Name: "Widget", CurrentStock: stock}
}

func TestPostMovementInOut(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 1, 0)
	svc := newTestService(repo)
	ctx := context.Background()

	entry, err := svc.PostMovement(ctx, MovementInput{
		ProductID: 1, Type: ledger.TypeIn, Reason: ledger.ReasonPurchase,
		Quantity: 50, UnitCost: decimal.NewFromInt(25), PerformedBy: 7,
	})
	require.NoError(t, err)
	require.Equal(t, int64(0), entry.PreviousStock)
	require.Equal(t, int64(50), entry.NewStock)
	require.True(t, entry.TotalCost.Equal(decimal.NewFromInt(1250)))
	require.Equal(t, int64(50), repo.products[1].TotalPurchased)

	entry, err = svc.PostMovement(ctx, MovementInput{
		ProductID: 1, Type: ledger.TypeOut, Reason: ledger.ReasonSale,
		Quantity: 20, PerformedBy: 7,
	})
	require.NoError(t, err)
	require.Equal(t, int64(50), entry.PreviousStock)
	require.Equal(t, int64(30), entry.NewStock)
	require.Equal(t, int64(30), repo.products[1].CurrentStock)
	require.Equal(t, int64(20), repo.products[1].TotalSold)
}

func TestPostMovementInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 1, 5)
	svc := newTestService(repo)

	_, err := svc.PostMovement(context.Background(), MovementInput{
		ProductID: 1, Type: ledger.TypeOut, Reason: ledger.ReasonSale, Quantity: 10,
	})
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, int64(5), insufficient.Available)
	require.Equal(t, int64(10), insufficient.Requested)
	require.Equal(t, int64(5), repo.products[1].CurrentStock)
	require.Empty(t, repo.movements)
}

func TestPostMovementRejectsTransferType(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 1, 10)
	svc := newTestService(repo)

	_, err := svc.PostMovement(context.Background(), MovementInput{
		ProductID: 1, Type: ledger.TypeTransfer, Reason: ledger.ReasonTransfer, Quantity: 1,
	})
	require.ErrorIs(t, err, ErrTransferViaMovement)
}

func TestTransferBetweenLocations(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 1, 0)
	svc := newTestService(repo)
	ctx := context.Background()

	loc1 := int64(1)
	_, err := svc.PostMovement(ctx, MovementInput{
		ProductID: 1, Type: ledger.TypeIn, Reason: ledger.ReasonPurchase,
		Quantity: 30, ToLocationID: &loc1,
	})
	require.NoError(t, err)

	entry, err := svc.Transfer(ctx, TransferInput{ProductID: 1, FromLocationID: 1, ToLocationID: 2, Quantity: 12})
	require.NoError(t, err)
	require.Equal(t, int64(30), entry.PreviousStock)
	require.Equal(t, int64(30), entry.NewStock)
	require.Equal(t, int64(30), repo.products[1].CurrentStock)

	levels, err := svc.Levels(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []Level{{LocationID: 1, Quantity: 18}, {LocationID: 2, Quantity: 12}}, levels)
}

func TestTransferValidation(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 1, 0)
	svc := newTestService(repo)
	ctx := context.Background()

	loc1 := int64(1)
	_, err := svc.PostMovement(ctx, MovementInput{
		ProductID: 1, Type: ledger.TypeIn, Reason: ledger.ReasonPurchase,
		Quantity: 10, ToLocationID: &loc1,
	})
	require.NoError(t, err)

	_, err = svc.Transfer(ctx, TransferInput{ProductID: 1, FromLocationID: 1, ToLocationID: 1, Quantity: 5})
	require.ErrorIs(t, err, ErrInvalidLocationPair)

	_, err = svc.Transfer(ctx, TransferInput{ProductID: 1, FromLocationID: 1, ToLocationID: 99, Quantity: 5})
	require.ErrorIs(t, err, ErrLocationNotFound)

	_, err = svc.Transfer(ctx, TransferInput{ProductID: 1, FromLocationID: 1, ToLocationID: 2, Quantity: 50})
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, int64(10), insufficient.Available)
}

func TestAdjustmentRebalancesSingleBucket(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 1, 0)
	svc := newTestService(repo)
	ctx := context.Background()

	loc1 := int64(1)
	_, err := svc.PostMovement(ctx, MovementInput{
		ProductID: 1, Type: ledger.TypeIn, Reason: ledger.ReasonPurchase,
		Quantity: 40, ToLocationID: &loc1,
	})
	require.NoError(t, err)

	entry, err := svc.PostMovement(ctx, MovementInput{
		ProductID: 1, Type: ledger.TypeAdjustment, Reason: ledger.ReasonAdjustment, Quantity: 25,
	})
	require.NoError(t, err)
	require.Equal(t, int64(40), entry.PreviousStock)
	require.Equal(t, int64(25), entry.NewStock)

	levels, err := svc.Levels(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []Level{{LocationID: 1, Quantity: 25}}, levels)

	entry, err = svc.PostMovement(ctx, MovementInput{
		ProductID: 1, Type: ledger.TypeAdjustment, Reason: ledger.ReasonAdjustment, Quantity: 0,
	})
	require.NoError(t, err)
	require.Equal(t, int64(0), entry.NewStock)

	levels, err = svc.Levels(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, levels)
}

func TestAdjustmentAmbiguousAcrossBuckets(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 1, 0)
	svc := newTestService(repo)
	ctx := context.Background()

	for _, loc := range []int64{1, 2} {
		locID := loc
		_, err := svc.PostMovement(ctx, MovementInput{
			ProductID: 1, Type: ledger.TypeIn, Reason: ledger.ReasonPurchase,
			Quantity: 10, ToLocationID: &locID,
		})
		require.NoError(t, err)
	}

	_, err := svc.PostMovement(ctx, MovementInput{
		ProductID: 1, Type: ledger.TypeAdjustment, Reason: ledger.ReasonAdjustment, Quantity: 5,
	})
	require.ErrorIs(t, err, ErrAmbiguousAdjustment)
	require.Equal(t, int64(20), repo.products[1].CurrentStock)
}

func TestAdjustmentRejectsLocationHint(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 1, 10)
	svc := newTestService(repo)

	loc1 := int64(1)
	_, err := svc.PostMovement(context.Background(), MovementInput{
		ProductID: 1, Type: ledger.TypeAdjustment, Reason: ledger.ReasonAdjustment,
		Quantity: 5, ToLocationID: &loc1,
	})
	require.ErrorIs(t, err, ErrLocationNotAllowed)
}

func TestMovementDefaultsToSoleBucket(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 1, 0)
	svc := newTestService(repo)
	ctx := context.Background()

	loc1 := int64(1)
	_, err := svc.PostMovement(ctx, MovementInput{
		ProductID: 1, Type: ledger.TypeIn, Reason: ledger.ReasonPurchase,
		Quantity: 30, ToLocationID: &loc1,
	})
	require.NoError(t, err)

	entry, err := svc.PostMovement(ctx, MovementInput{
		ProductID: 1, Type: ledger.TypeOut, Reason: ledger.ReasonSale, Quantity: 10,
	})
	require.NoError(t, err)
	require.NotNil(t, entry.FromLocationID)
	require.Equal(t, loc1, *entry.FromLocationID)

	levels, err := svc.Levels(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []Level{{LocationID: 1, Quantity: 20}}, levels)
	require.Equal(t, int64(20), repo.products[1].CurrentStock)
}

func TestMovementRequiresLocationAcrossBuckets(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 1, 0)
	svc := newTestService(repo)
	ctx := context.Background()

	for _, loc := range []int64{1, 2} {
		locID := loc
		_, err := svc.PostMovement(ctx, MovementInput{
			ProductID: 1, Type: ledger.TypeIn, Reason: ledger.ReasonPurchase,
			Quantity: 10, ToLocationID: &locID,
		})
		require.NoError(t, err)
	}

	_, err := svc.PostMovement(ctx, MovementInput{
		ProductID: 1, Type: ledger.TypeOut, Reason: ledger.ReasonSale, Quantity: 5,
	})
	require.ErrorIs(t, err, ErrLocationRequired)

	_, err = svc.PostMovement(ctx, MovementInput{
		ProductID: 1, Type: ledger.TypeIn, Reason: ledger.ReasonReturn, Quantity: 5,
	})
	require.ErrorIs(t, err, ErrLocationRequired)
	require.Equal(t, int64(20), repo.products[1].CurrentStock)
}

func TestFirstBucketAbsorbsUntrackedStock(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 1, 0)
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.PostMovement(ctx, MovementInput{
		ProductID: 1, Type: ledger.TypeIn, Reason: ledger.ReasonPurchase, Quantity: 10,
	})
	require.NoError(t, err)

	loc1 := int64(1)
	_, err = svc.PostMovement(ctx, MovementInput{
		ProductID: 1, Type: ledger.TypeIn, Reason: ledger.ReasonPurchase,
		Quantity: 5, ToLocationID: &loc1,
	})
	require.NoError(t, err)

	levels, err := svc.Levels(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []Level{{LocationID: 1, Quantity: 15}}, levels)
	require.Equal(t, int64(15), repo.products[1].CurrentStock)
}

func TestLedgerReplayMatchesCurrentStock(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 1, 0)
	svc := newTestService(repo)
	ctx := context.Background()

	inputs := []MovementInput{
		{ProductID: 1, Type: ledger.TypeIn, Reason: ledger.ReasonPurchase, Quantity: 100},
		{ProductID: 1, Type: ledger.TypeOut, Reason: ledger.ReasonSale, Quantity: 30},
		{ProductID: 1, Type: ledger.TypeAdjustment, Reason: ledger.ReasonAdjustment, Quantity: 65},
		{ProductID: 1, Type: ledger.TypeOut, Reason: ledger.ReasonDamage, Quantity: 5},
		{ProductID: 1, Type: ledger.TypeIn, Reason: ledger.ReasonReturn, Quantity: 3},
	}
	for _, in := range inputs {
		_, err := svc.PostMovement(ctx, in)
		require.NoError(t, err)
	}

	replayed, err := ledger.Replay(0, repo.movements)
	require.NoError(t, err)
	require.Equal(t, repo.products[1].CurrentStock, replayed)
	require.Equal(t, int64(63), replayed)
}

func TestApplyAllLocksAscending(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 3, 10)
	seedProduct(repo, 1, 10)
	seedProduct(repo, 2, 10)
	ctx := context.Background()

	var movements []ledger.Movement
	err := repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		movements, err = ApplyAll(ctx, tx, []MovementInput{
			{ProductID: 3, Type: ledger.TypeOut, Reason: ledger.ReasonSale, Quantity: 1},
			{ProductID: 1, Type: ledger.TypeOut, Reason: ledger.ReasonSale, Quantity: 2},
			{ProductID: 2, Type: ledger.TypeOut, Reason: ledger.ReasonSale, Quantity: 3},
		})
		return err
	})
	require.NoError(t, err)
	require.Len(t, movements, 3)
	require.Equal(t, int64(1), movements[0].ProductID)
	require.Equal(t, int64(2), movements[1].ProductID)
	require.Equal(t, int64(3), movements[2].ProductID)
	require.Equal(t, int64(8), repo.products[1].CurrentStock)
}
