package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tombola_service/internal/ledger"
)

var (
	singlePrice = decimal.NewFromInt(2)
	bundlePrice = decimal.NewFromInt(5)
)

func TestSplitSingle(t *testing.T) {
	split := ledger.Split(1, singlePrice, bundlePrice)

	require.True(t, split.TotalCost.Equal(decimal.NewFromInt(2)), "total %s", split.TotalCost)
	require.True(t, split.JackpotShare.Equal(decimal.NewFromFloat(1.6)), "jackpot %s", split.JackpotShare)
	require.True(t, split.HouseShare.Equal(decimal.NewFromFloat(0.4)), "house %s", split.HouseShare)
}

func TestSplitMultipleSingles(t *testing.T) {
	split := ledger.Split(3, singlePrice, bundlePrice)

	require.True(t, split.TotalCost.Equal(decimal.NewFromInt(6)))
	require.True(t, split.JackpotShare.Equal(decimal.NewFromFloat(4.8)))
	require.True(t, split.HouseShare.Equal(decimal.NewFromFloat(1.2)))
}

func TestSplitBundleIsFlatPriced(t *testing.T) {
	split := ledger.Split(ledger.BundleSize, singlePrice, bundlePrice)

	// Six singles would cost 12; the bundle costs the flat 5.
	require.True(t, split.TotalCost.Equal(decimal.NewFromInt(5)))
	require.True(t, split.JackpotShare.Equal(decimal.NewFromInt(4)))
	require.True(t, split.HouseShare.Equal(decimal.NewFromInt(1)))
}

func TestSplitSharesSumToTotal(t *testing.T) {
	for _, qty := range []int{1, 2, 5, 6, 7, 50} {
		split := ledger.Split(qty, singlePrice, bundlePrice)
		sum := split.JackpotShare.Add(split.HouseShare)
		require.True(t, sum.Equal(split.TotalCost), "qty %d: %s + %s != %s",
			qty, split.JackpotShare, split.HouseShare, split.TotalCost)
	}
}

func TestBundleUnitPricesSumToTotal(t *testing.T) {
	prices := ledger.BundleUnitPrices(bundlePrice)
	require.Len(t, prices, ledger.BundleSize)

	// 5.00/6 rounds to 0.83; the first ticket carries the 0.02 remainder.
	require.True(t, prices[0].Equal(decimal.NewFromFloat(0.85)), "first %s", prices[0])
	for _, p := range prices[1:] {
		require.True(t, p.Equal(decimal.NewFromFloat(0.83)), "unit %s", p)
	}

	sum := decimal.Zero
	for _, p := range prices {
		sum = sum.Add(p)
	}
	require.True(t, sum.Equal(bundlePrice), "sum %s != %s", sum, bundlePrice)
}

func TestBundleUnitPricesEvenTotal(t *testing.T) {
	prices := ledger.BundleUnitPrices(decimal.NewFromInt(6))
	for _, p := range prices {
		require.True(t, p.Equal(decimal.NewFromInt(1)), "unit %s", p)
	}
}

func TestRefundCuts(t *testing.T) {
	amount := decimal.NewFromInt(2)
	require.True(t, ledger.JackpotCut(amount).Equal(decimal.NewFromFloat(1.6)))
	require.True(t, ledger.HouseCut(amount).Equal(decimal.NewFromFloat(0.4)))
}
