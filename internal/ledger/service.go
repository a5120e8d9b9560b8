package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BundleSize is the only quantity sold at the flat bundle price.
const BundleSize = 6

var (
	jackpotRate = decimal.NewFromFloat(0.8)
	houseRate   = decimal.NewFromFloat(0.2)
)

// Service is the single place that computes amounts for money-moving game
// operations and writes the matching cash book rows. Jackpot mutation itself
// stays with the caller, which owns the config row.
type Service struct {
	repo MovementRepository
}

func NewService(repo MovementRepository) *Service {
	return &Service{repo: repo}
}

// Split prices a purchase: a quantity of exactly BundleSize costs the flat
// bundle price, anything else is quantity times the single-ticket price.
// 80% of the cost feeds the jackpot, 20% is house revenue.
func Split(quantity int, singlePrice, bundlePrice decimal.Decimal) PurchaseSplit {
	var total decimal.Decimal
	if quantity == BundleSize {
		total = bundlePrice
	} else {
		total = singlePrice.Mul(decimal.NewFromInt(int64(quantity)))
	}
	return PurchaseSplit{
		TotalCost:    total,
		JackpotShare: total.Mul(jackpotRate),
		HouseShare:   total.Mul(houseRate),
	}
}

// BundleUnitPrices spreads the flat bundle price over its six tickets. Each
// ticket carries the rounded even share and the first absorbs the cent
// remainder, so refunding every bundle ticket withdraws exactly what the
// sale deposited.
func BundleUnitPrices(total decimal.Decimal) []decimal.Decimal {
	unit := total.DivRound(decimal.NewFromInt(BundleSize), 2)
	prices := make([]decimal.Decimal, BundleSize)
	for i := range prices {
		prices[i] = unit
	}
	remainder := total.Sub(unit.Mul(decimal.NewFromInt(BundleSize)))
	prices[0] = prices[0].Add(remainder)
	return prices
}

// JackpotCut is the portion of a refunded amount that comes back out of the
// jackpot; the remaining 20% is reclaimed from house revenue.
func JackpotCut(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(jackpotRate)
}

func HouseCut(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(houseRate)
}

// RecordPurchase writes the two deposits for a ticket sale: the full cost
// against the tombola category and the house share against the bar.
func (s *Service) RecordPurchase(ctx context.Context, tx *gorm.DB, playerName string, quantity int, split PurchaseSplit) error {
	sale := &CashMovement{
		Amount:   split.TotalCost,
		Reason:   fmt.Sprintf("tombola: sale of %d ticket(s) to %s", quantity, playerName),
		Type:     TypeDeposit,
		Category: CategoryTombola,
	}
	if err := s.repo.Create(ctx, tx, sale); err != nil {
		return err
	}
	house := &CashMovement{
		Amount:   split.HouseShare,
		Reason:   fmt.Sprintf("tombola: house share on sale to %s", playerName),
		Type:     TypeDeposit,
		Category: CategoryBar,
	}
	return s.repo.Create(ctx, tx, house)
}

// RecordRefund writes the two withdrawals for a refund: the full amount from
// the tombola category and the 20% house share from the bar.
func (s *Service) RecordRefund(ctx context.Context, tx *gorm.DB, playerName string, amount decimal.Decimal) error {
	refund := &CashMovement{
		Amount:   amount,
		Reason:   fmt.Sprintf("tombola: refund to %s", playerName),
		Type:     TypeWithdrawal,
		Category: CategoryTombola,
	}
	if err := s.repo.Create(ctx, tx, refund); err != nil {
		return err
	}
	house := &CashMovement{
		Amount:   HouseCut(amount),
		Reason:   fmt.Sprintf("tombola: house share reversal for %s", playerName),
		Type:     TypeWithdrawal,
		Category: CategoryBar,
	}
	return s.repo.Create(ctx, tx, house)
}

// RecordTransfer writes the single bar deposit for a jackpot sweep into
// house revenue.
func (s *Service) RecordTransfer(ctx context.Context, tx *gorm.DB, amount decimal.Decimal) error {
	transfer := &CashMovement{
		Amount:   amount,
		Reason:   "tombola: jackpot transfer to house",
		Type:     TypeDeposit,
		Category: CategoryBar,
	}
	return s.repo.Create(ctx, tx, transfer)
}

func (s *Service) Movements(ctx context.Context, category string, limit int) ([]CashMovement, error) {
	return s.repo.List(ctx, category, limit)
}
