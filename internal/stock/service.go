package stock

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/tradewind-erp/tradewind/internal/ledger"
)

// ErrTransferViaMovement is returned when a transfer is posted through the
// generic movement operation instead of the transfer operation.
var ErrTransferViaMovement = errors.New("stock: transfers must use the transfer operation")

// CacheInvalidator bumps derived ledger caches after a successful write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// LevelReader reads the per-location breakdown outside a transaction.
type LevelReader interface {
	Levels(ctx context.Context, productID int64) ([]Level, error)
}

// Service executes stock movements.
type Service struct {
	repo   RepositoryPort
	levels LevelReader
	cache  CacheInvalidator
	log    *slog.Logger
}

// NewService constructs Service.
func NewService(repo RepositoryPort, levels LevelReader, cache CacheInvalidator, log *slog.Logger) *Service {
	return &Service{repo: repo, levels: levels, cache: cache, log: log}
}

// TransferInput describes a relocation between two locations.
type TransferInput struct {
	ProductID      int64
	FromLocationID int64
	ToLocationID   int64
	Quantity       int64
	PerformedBy    int64
	Notes          string
}

// PostMovement applies one in, out or adjustment movement.
func (s *Service) PostMovement(ctx context.Context, in MovementInput) (ledger.Movement, error) {
	if in.Type == ledger.TypeTransfer {
		return ledger.Movement{}, ErrTransferViaMovement
	}

	var entry ledger.Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = Apply(ctx, tx, in)
		return err
	})
	if err != nil {
		return ledger.Movement{}, err
	}

	s.cache.Invalidate(ctx)
	s.log.Info("stock movement applied",
		"productId", entry.ProductID, "type", entry.Type, "quantity", entry.Quantity, "newStock", entry.NewStock)
	return entry, nil
}

// Transfer relocates stock between two locations, leaving the aggregate
// unchanged.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (ledger.Movement, error) {
	var entry ledger.Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = Apply(ctx, tx, MovementInput{
			ProductID:      in.ProductID,
			Type:           ledger.TypeTransfer,
			Reason:         ledger.ReasonTransfer,
			Quantity:       in.Quantity,
			FromLocationID: &in.FromLocationID,
			ToLocationID:   &in.ToLocationID,
			UnitCost:       decimal.Zero,
			PerformedBy:    in.PerformedBy,
			Notes:          in.Notes,
		})
		return err
	})
	if err != nil {
		return ledger.Movement{}, err
	}

	s.cache.Invalidate(ctx)
	s.log.Info("stock transferred",
		"productId", entry.ProductID, "from", in.FromLocationID, "to", in.ToLocationID, "quantity", in.Quantity)
	return entry, nil
}

// Levels returns the location breakdown for one product.
func (s *Service) Levels(ctx context.Context, productID int64) ([]Level, error) {
	return s.levels.Levels(ctx, productID)
}
