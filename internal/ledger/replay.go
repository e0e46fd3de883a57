package ledger

import "fmt"

// signedDelta returns the aggregate stock change contributed by one entry.
// Transfers touch only the per-location breakdown; adjustments are handled
// by Replay directly since they set an absolute value.
func signedDelta(m Movement) int64 {
	switch m.Type {
	case TypeIn:
		return m.Quantity
	case TypeOut:
		return -m.Quantity
	default:
		return 0
	}
}

// Replay folds entries (expected in movementDate order) into the final
// aggregate stock and verifies each entry's previous/new snapshots chain
// correctly. It is used by the counter verification routine and tests.
func Replay(opening int64, entries []Movement) (int64, error) {
	stock := opening
	for _, m := range entries {
		if m.PreviousStock != stock {
			return stock, fmt.Errorf("ledger: entry %d previousStock=%d, expected %d", m.ID, m.PreviousStock, stock)
		}
		switch m.Type {
		case TypeAdjustment:
			stock = m.Quantity
		default:
			stock += signedDelta(m)
		}
		if m.NewStock != stock {
			return stock, fmt.Errorf("ledger: entry %d newStock=%d, expected %d", m.ID, m.NewStock, stock)
		}
	}
	return stock, nil
}
