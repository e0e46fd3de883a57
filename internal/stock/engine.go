package stock

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradewind-erp/tradewind/internal/ledger"
)

// TxRepository exposes the transactional operations the engine requires. All
// methods run inside one store transaction so the product update and the
// ledger append commit or roll back together.
type TxRepository interface {
	// LockProduct serialises movements per product for the whole transaction.
	LockProduct(ctx context.Context, productID int64) error
	GetProductState(ctx context.Context, productID int64) (ProductState, error)
	SaveProductState(ctx context.Context, state ProductState) error
	// AdjustTotalSold and AdjustTotalPurchased shift the lifetime counters.
	// Workflow compensation uses them to reverse a counter alongside the
	// compensating movement, whose reason does not touch counters itself.
	AdjustTotalSold(ctx context.Context, productID, delta int64) error
	AdjustTotalPurchased(ctx context.Context, productID, delta int64) error
	GetLevels(ctx context.Context, productID int64) ([]Level, error)
	// SetLevel upserts one location bucket; zero quantity removes the row.
	SetLevel(ctx context.Context, productID, locationID, quantity int64) error
	LocationExists(ctx context.Context, locationID int64) (bool, error)
	AppendMovement(ctx context.Context, m ledger.Movement) (ledger.Movement, error)
}

// Apply executes one movement against the product it targets: validates the
// preconditions of the movement type, updates the aggregate and the location
// breakdown, and appends the ledger entry capturing the stock snapshots.
func Apply(ctx context.Context, tx TxRepository, in MovementInput) (ledger.Movement, error) {
	spec, ok := movementTable[in.Type]
	if !ok {
		return ledger.Movement{}, fmt.Errorf("%w: %q", ErrUnknownMovementType, in.Type)
	}
	if in.Quantity < spec.minQuantity {
		return ledger.Movement{}, ErrInvalidQuantity
	}
	if !ledger.ValidReason(in.Reason) {
		return ledger.Movement{}, fmt.Errorf("stock: unknown movement reason %q", in.Reason)
	}
	if err := validateLocations(ctx, tx, spec, in); err != nil {
		return ledger.Movement{}, err
	}

	if err := tx.LockProduct(ctx, in.ProductID); err != nil {
		return ledger.Movement{}, err
	}
	state, err := tx.GetProductState(ctx, in.ProductID)
	if err != nil {
		return ledger.Movement{}, err
	}

	previous := state.CurrentStock
	next := spec.aggregate(previous, in.Quantity)
	if next < 0 {
		return ledger.Movement{}, &InsufficientStockError{ProductID: in.ProductID, Available: previous, Requested: in.Quantity}
	}

	fromLoc, toLoc, err := applyLevels(ctx, tx, spec, in, next)
	if err != nil {
		return ledger.Movement{}, err
	}

	state.CurrentStock = next
	switch in.Reason {
	case ledger.ReasonSale:
		state.TotalSold += in.Quantity
	case ledger.ReasonPurchase:
		state.TotalPurchased += in.Quantity
	}
	state.LastStockUpdate = time.Now().UTC()
	if err := tx.SaveProductState(ctx, state); err != nil {
		return ledger.Movement{}, err
	}

	entry := ledger.Movement{
		ProductID:      in.ProductID,
		Type:           in.Type,
		Reason:         in.Reason,
		Quantity:       in.Quantity,
		PreviousStock:  previous,
		NewStock:       next,
		UnitCost:       in.UnitCost,
		TotalCost:      in.UnitCost.Mul(decimal.NewFromInt(in.Quantity)),
		FromLocationID: fromLoc,
		ToLocationID:   toLoc,
		Reference:      in.Reference,
		PerformedBy:    in.PerformedBy,
		MovementDate:   state.LastStockUpdate,
		Notes:          in.Notes,
	}
	return tx.AppendMovement(ctx, entry)
}

// ApplyAll executes movements for several products in one transaction,
// visiting products in ascending id order so per-product locks are always
// acquired in the same order.
func ApplyAll(ctx context.Context, tx TxRepository, inputs []MovementInput) ([]ledger.Movement, error) {
	ordered := make([]MovementInput, len(inputs))
	copy(ordered, inputs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ProductID < ordered[j].ProductID })

	movements := make([]ledger.Movement, 0, len(ordered))
	for _, in := range ordered {
		m, err := Apply(ctx, tx, in)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, nil
}

func validateLocations(ctx context.Context, tx TxRepository, spec movementSpec, in MovementInput) error {
	if in.FromLocationID != nil && !spec.allowFrom {
		return fmt.Errorf("%w: %q takes no source", ErrLocationNotAllowed, in.Type)
	}
	if in.ToLocationID != nil && !spec.allowTo {
		return fmt.Errorf("%w: %q takes no destination", ErrLocationNotAllowed, in.Type)
	}
	if spec.requireBoth {
		if in.FromLocationID == nil || in.ToLocationID == nil {
			return fmt.Errorf("stock: transfer requires source and destination locations")
		}
		if *in.FromLocationID == *in.ToLocationID {
			return ErrInvalidLocationPair
		}
	}
	for _, locID := range []*int64{in.FromLocationID, in.ToLocationID} {
		if locID == nil {
			continue
		}
		exists, err := tx.LocationExists(ctx, *locID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %d", ErrLocationNotFound, *locID)
		}
	}
	return nil
}

// applyLevels maintains the per-location breakdown and returns the locations
// the movement actually touched, which may differ from the input when the
// movement defaulted to the product's only bucket.
func applyLevels(ctx context.Context, tx TxRepository, spec movementSpec, in MovementInput, newStock int64) (*int64, *int64, error) {
	levels, err := tx.GetLevels(ctx, in.ProductID)
	if err != nil {
		return nil, nil, err
	}
	byLocation := make(map[int64]int64, len(levels))
	for _, level := range levels {
		byLocation[level.LocationID] = level.Quantity
	}

	if spec.absoluteLevel {
		// Absolute set can only be re-balanced deterministically when stock
		// lives in at most one bucket.
		switch len(levels) {
		case 0:
			return nil, nil, nil
		case 1:
			return nil, nil, tx.SetLevel(ctx, in.ProductID, levels[0].LocationID, newStock)
		default:
			return nil, nil, ErrAmbiguousAdjustment
		}
	}

	fromLoc, toLoc := in.FromLocationID, in.ToLocationID
	// Once a product tracks buckets, every in/out has to name the bucket it
	// touches or the per-location sum drifts from the aggregate. A single
	// bucket is unambiguous, so the movement defaults to it.
	if len(levels) > 0 && !spec.requireBoth {
		if spec.allowFrom && fromLoc == nil {
			if len(levels) > 1 {
				return nil, nil, ErrLocationRequired
			}
			fromLoc = &levels[0].LocationID
		}
		if spec.allowTo && toLoc == nil {
			if len(levels) > 1 {
				return nil, nil, ErrLocationRequired
			}
			toLoc = &levels[0].LocationID
		}
	}

	if fromLoc != nil {
		available := byLocation[*fromLoc]
		if available < in.Quantity {
			return nil, nil, &InsufficientStockError{ProductID: in.ProductID, Available: available, Requested: in.Quantity}
		}
		if err := tx.SetLevel(ctx, in.ProductID, *fromLoc, available-in.Quantity); err != nil {
			return nil, nil, err
		}
	}
	if toLoc != nil {
		quantity := byLocation[*toLoc] + in.Quantity
		if len(levels) == 0 {
			// The first tracked bucket absorbs the whole aggregate so any
			// previously untracked stock stays in the sum.
			quantity = newStock
		}
		if err := tx.SetLevel(ctx, in.ProductID, *toLoc, quantity); err != nil {
			return nil, nil, err
		}
	}
	return fromLoc, toLoc, nil
}
