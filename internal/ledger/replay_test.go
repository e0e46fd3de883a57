package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReplayChainsSnapshots(t *testing.T) {
	entries := []Movement{
		{ID: 1, Type: TypeIn, Quantity: 100, PreviousStock: 0, NewStock: 100},
		{ID: 2, Type: TypeOut, Quantity: 30, PreviousStock: 100, NewStock: 70},
		{ID: 3, Type: TypeTransfer, Quantity: 10, PreviousStock: 70, NewStock: 70},
		{ID: 4, Type: TypeAdjustment, Quantity: 65, PreviousStock: 70, NewStock: 65},
		{ID: 5, Type: TypeOut, Quantity: 5, PreviousStock: 65, NewStock: 60},
	}
	stock, err := Replay(0, entries)
	require.NoError(t, err)
	require.Equal(t, int64(60), stock)
}

func TestReplayDetectsBrokenChain(t *testing.T) {
	entries := []Movement{
		{ID: 1, Type: TypeIn, Quantity: 10, PreviousStock: 0, NewStock: 10},
		{ID: 2, Type: TypeOut, Quantity: 3, PreviousStock: 12, NewStock: 9},
	}
	_, err := Replay(0, entries)
	require.Error(t, err)
	require.Contains(t, err.Error(), "entry 2")
}

func TestReplayDetectsWrongNewStock(t *testing.T) {
	entries := []Movement{
		{ID: 1, Type: TypeIn, Quantity: 10, PreviousStock: 0, NewStock: 11},
	}
	_, err := Replay(0, entries)
	require.Error(t, err)
}

func TestReplayEmptyLedger(t *testing.T) {
	stock, err := Replay(42, nil)
	require.NoError(t, err)
	require.Equal(t, int64(42), stock)
}
