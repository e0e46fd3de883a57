package products

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tradewind-erp/tradewind/internal/stock"
)

func TestNewResponseDerivesProfit(t *testing.T) {
	p := Product{
		SellingPrice: decimal.NewFromInt(150),
		CostPrice:    decimal.NewFromInt(100),
		CurrentStock: 5,
		MinimumStock: 10,
	}
	resp := NewResponse(p)
	require.True(t, resp.ProfitFlat.Equal(decimal.NewFromInt(50)))
	require.True(t, resp.ProfitMargin.Equal(decimal.NewFromFloat(33.33)))
	require.Equal(t, stock.StatusLowStock, resp.Status)
}

func TestNewResponseZeroSellingPrice(t *testing.T) {
	p := Product{CostPrice: decimal.NewFromInt(100)}
	resp := NewResponse(p)
	require.True(t, resp.ProfitFlat.Equal(decimal.NewFromInt(-100)))
	require.True(t, resp.ProfitMargin.IsZero())
	require.Equal(t, stock.StatusOutOfStock, resp.Status)
}

func TestNormalizeSKU(t *testing.T) {
	require.Equal(t, "ABC-001", NormalizeSKU("  abc-001 "))
}

func TestNormalizeBarcode(t *testing.T) {
	blank := "   "
	require.Nil(t, normalizeBarcode(nil))
	require.Nil(t, normalizeBarcode(&blank))

	raw := " 4006381333931 "
	got := normalizeBarcode(&raw)
	require.NotNil(t, got)
	require.Equal(t, "4006381333931", *got)
}
