package game

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// GameConfig is the singleton row holding the whole game state. It is
// created lazily with defaults on first access and only ever reset back to
// pristine pending values, never deleted. The version column backs the
// optimistic-lock retry loop used by the money-moving paths.
type GameConfig struct {
	ConfigID          string                   `gorm:"column:config_id;primaryKey;type:varchar(32)"`
	Status            string                   `gorm:"column:status;type:varchar(20);not null"` // "pending", "active", "completed"
	MaxTickets        int                      `gorm:"column:max_tickets;not null"`
	MinTicketsToStart int                      `gorm:"column:min_tickets_to_start;not null"`
	TicketPriceSingle decimal.Decimal          `gorm:"column:ticket_price_single;type:numeric(20,2);not null"`
	TicketPriceBundle decimal.Decimal          `gorm:"column:ticket_price_bundle;type:numeric(20,2);not null"`
	Jackpot           decimal.Decimal          `gorm:"column:jackpot;type:numeric(20,2);not null;default:0"`
	ExtractedNumbers  datatypes.JSONSlice[int] `gorm:"column:extracted_numbers"`
	GameStartTime     *time.Time               `gorm:"column:game_start_time"`
	TargetDate        *time.Time               `gorm:"column:target_date"`
	Version           int                      `gorm:"column:version;not null;default:1"`
	CreatedAt         time.Time                `gorm:"column:created_at;not null;default:now()"`
	UpdatedAt         time.Time                `gorm:"column:updated_at;not null;default:now()"`
}

// Ticket is one purchased card of 15 distinct numbers in 1..90, stored in
// ascending order. Deleted on refund or full reset.
type Ticket struct {
	TicketID     string                   `gorm:"column:ticket_id;primaryKey;type:uuid;default:uuid_generate_v4()"`
	PlayerID     string                   `gorm:"column:player_id;type:varchar(64);not null"`
	PlayerName   string                   `gorm:"column:player_name;type:varchar(100);not null"`
	Numbers      datatypes.JSONSlice[int] `gorm:"column:numbers;not null"`
	PricePaid    decimal.Decimal          `gorm:"column:price_paid;type:numeric(20,2);not null"`
	PurchaseTime time.Time                `gorm:"column:purchase_time;not null;default:now()"`
}

// WinRecord is one (ticket, tier) win. The composite primary key
// ticketID + "_" + tier makes recording idempotent: re-deriving the same win
// during a later scan never produces a duplicate row.
type WinRecord struct {
	WinID          string                   `gorm:"column:win_id;primaryKey;type:varchar(100)"`
	TicketID       string                   `gorm:"column:ticket_id;type:uuid;not null"`
	PlayerName     string                   `gorm:"column:player_name;type:varchar(100);not null"`
	Tier           string                   `gorm:"column:tier;type:varchar(20);not null"`
	MatchedNumbers datatypes.JSONSlice[int] `gorm:"column:matched_numbers;not null"`
	CreatedAt      time.Time                `gorm:"column:created_at;not null;default:now()"`
}

const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCompleted = "completed"
)

const (
	TierAmbo     = "Ambo"
	TierTerno    = "Terno"
	TierQuaterna = "Quaterna"
	TierCinquina = "Cinquina"
	TierTombola  = "Tombola"
)

// tierByMatches maps an exact match count to its win tier. The exact-match
// trigger is only safe because Draw adds one number per call, so a ticket's
// match count grows by at most one and no tier can be skipped.
var tierByMatches = map[int]string{
	2:  TierAmbo,
	3:  TierTerno,
	4:  TierQuaterna,
	5:  TierCinquina,
	15: TierTombola,
}

// WinRecordID builds the composite idempotent id for a (ticket, tier) pair.
func WinRecordID(ticketID, tier string) string {
	return ticketID + "_" + tier
}
