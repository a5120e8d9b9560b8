package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashMovement is one append-only row in the club's cash book. Every
// money-moving game operation writes these in pairs: the full amount against
// the game category and the house share against the bar category.
type CashMovement struct {
	MovementID string          `gorm:"column:movement_id;primaryKey;type:uuid;default:uuid_generate_v4()"`
	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(20,2);not null"`
	Reason     string          `gorm:"column:reason;type:varchar(255);not null"`
	Type       string          `gorm:"column:type;type:varchar(20);not null"`     // "deposit", "withdrawal"
	Category   string          `gorm:"column:category;type:varchar(20);not null"` // "bar", "tombola"
	CreatedAt  time.Time       `gorm:"column:created_at;not null;default:now()"`
}

type PurchaseSplit struct {
	TotalCost    decimal.Decimal `json:"total_cost"`
	JackpotShare decimal.Decimal `json:"jackpot_share"`
	HouseShare   decimal.Decimal `json:"house_share"`
}

const (
	TypeDeposit    = "deposit"
	TypeWithdrawal = "withdrawal"
)

const (
	CategoryBar     = "bar"
	CategoryTombola = "tombola"
)
