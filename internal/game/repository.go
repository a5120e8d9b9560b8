package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrConfigNotFound = errors.New("game config not found")
	ErrTicketNotFound = errors.New("ticket not found")
	ErrOptimisticLock = errors.New("optimistic lock error")
)

// ConfigKey is the primary key of the singleton config row.
const ConfigKey = "tombola"

// BatchLimit caps how many rows a single bulk-delete transaction touches.
// Bulk refund and reset commit one batch at a time and are not atomic across
// batches.
const BatchLimit = 490

// Defaults seeds the config row on first access.
type Defaults struct {
	MaxTickets        int
	MinTicketsToStart int
	TicketPriceSingle decimal.Decimal
	TicketPriceBundle decimal.Decimal
}

type GameRepository interface {
	GetOrCreateConfig(ctx context.Context) (*GameConfig, error)
	GetConfig(ctx context.Context, tx *gorm.DB) (*GameConfig, error)
	GetConfigForUpdate(ctx context.Context, tx *gorm.DB) (*GameConfig, error)
	UpdateConfigVersioned(ctx context.Context, tx *gorm.DB, version int, updates map[string]interface{}) error
	UpdateConfig(ctx context.Context, tx *gorm.DB, updates map[string]interface{}) error
	DecrementJackpotFloored(ctx context.Context, tx *gorm.DB, cut decimal.Decimal) error

	CreateTickets(ctx context.Context, tx *gorm.DB, tickets []*Ticket) error
	GetTicket(ctx context.Context, tx *gorm.DB, ticketID string) (*Ticket, error)
	ListTickets(ctx context.Context, tx *gorm.DB) ([]Ticket, error)
	TicketsByPlayer(ctx context.Context, playerID string) ([]Ticket, error)
	CountTickets(ctx context.Context, tx *gorm.DB) (int64, error)
	DeleteTicket(ctx context.Context, tx *gorm.DB, ticketID string) error
	DeleteTicketsBatch(ctx context.Context, ticketIDs []string) error
	AllTicketIDs(ctx context.Context) ([]string, error)

	UpsertWinRecords(ctx context.Context, tx *gorm.DB, records []*WinRecord) error
	ListWinRecords(ctx context.Context) ([]WinRecord, error)
	AllWinRecordIDs(ctx context.Context) ([]string, error)
	DeleteWinRecordsBatch(ctx context.Context, winIDs []string) error
}

type GameRepositoryImpl struct {
	db       *gorm.DB
	defaults Defaults
}

func NewGameRepository(db *gorm.DB, defaults Defaults) *GameRepositoryImpl {
	return &GameRepositoryImpl{db: db, defaults: defaults}
}

// GetOrCreateConfig returns the singleton config row, creating it with
// pristine pending defaults the first time anything touches the game.
func (r *GameRepositoryImpl) GetOrCreateConfig(ctx context.Context) (*GameConfig, error) {
	var cfg GameConfig
	err := r.db.WithContext(ctx).Where("config_id = ?", ConfigKey).First(&cfg).Error
	if err == nil {
		return &cfg, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get game config: %w", err)
	}

	cfg = GameConfig{
		ConfigID:          ConfigKey,
		Status:            StatusPending,
		MaxTickets:        r.defaults.MaxTickets,
		MinTicketsToStart: r.defaults.MinTicketsToStart,
		TicketPriceSingle: r.defaults.TicketPriceSingle,
		TicketPriceBundle: r.defaults.TicketPriceBundle,
		Jackpot:           decimal.Zero,
		ExtractedNumbers:  []int{},
		Version:           1,
	}
	// Another caller may create the row concurrently; on conflict keep theirs.
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&cfg).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create game config: %w", err)
	}
	if err := r.db.WithContext(ctx).Where("config_id = ?", ConfigKey).First(&cfg).Error; err != nil {
		return nil, fmt.Errorf("failed to reload game config: %w", err)
	}
	return &cfg, nil
}

func (r *GameRepositoryImpl) GetConfig(ctx context.Context, tx *gorm.DB) (*GameConfig, error) {
	if tx == nil {
		tx = r.db
	}
	var cfg GameConfig
	err := tx.WithContext(ctx).Where("config_id = ?", ConfigKey).First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to get game config: %w", err)
	}
	return &cfg, nil
}

// GetConfigForUpdate locks the config row for the rest of the transaction,
// serializing draws against each other and against refunds.
func (r *GameRepositoryImpl) GetConfigForUpdate(ctx context.Context, tx *gorm.DB) (*GameConfig, error) {
	var cfg GameConfig
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("config_id = ?", ConfigKey).
		First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to lock game config: %w", err)
	}
	return &cfg, nil
}

// UpdateConfigVersioned applies updates only when the row still carries the
// version the caller read; zero rows affected means a concurrent writer won
// and the caller should retry.
func (r *GameRepositoryImpl) UpdateConfigVersioned(ctx context.Context, tx *gorm.DB, version int, updates map[string]interface{}) error {
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = time.Now()

	result := tx.WithContext(ctx).Model(&GameConfig{}).
		Where("config_id = ? AND version = ?", ConfigKey, version).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update game config: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOptimisticLock
	}
	return nil
}

// UpdateConfig applies updates unconditionally, for callers that already
// hold the row lock or deliberately overwrite (reset).
func (r *GameRepositoryImpl) UpdateConfig(ctx context.Context, tx *gorm.DB, updates map[string]interface{}) error {
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = time.Now()

	result := tx.WithContext(ctx).Model(&GameConfig{}).
		Where("config_id = ?", ConfigKey).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update game config: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConfigNotFound
	}
	return nil
}

// DecrementJackpotFloored subtracts cut from the jackpot in SQL, floored at
// zero. The relative form composes with interleaved purchases, which an
// absolute write from a stale read would silently undo.
func (r *GameRepositoryImpl) DecrementJackpotFloored(ctx context.Context, tx *gorm.DB, cut decimal.Decimal) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).Model(&GameConfig{}).
		Where("config_id = ?", ConfigKey).
		Updates(map[string]interface{}{
			"jackpot":    gorm.Expr("GREATEST(jackpot - ?, 0)", cut),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to decrement jackpot: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConfigNotFound
	}
	return nil
}

func (r *GameRepositoryImpl) CreateTickets(ctx context.Context, tx *gorm.DB, tickets []*Ticket) error {
	for _, t := range tickets {
		if t.TicketID == "" {
			t.TicketID = uuid.New().String()
		}
	}
	if err := tx.WithContext(ctx).Create(tickets).Error; err != nil {
		return fmt.Errorf("failed to create tickets: %w", err)
	}
	return nil
}

func (r *GameRepositoryImpl) GetTicket(ctx context.Context, tx *gorm.DB, ticketID string) (*Ticket, error) {
	if tx == nil {
		tx = r.db
	}
	var t Ticket
	err := tx.WithContext(ctx).Where("ticket_id = ?", ticketID).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return &t, nil
}

func (r *GameRepositoryImpl) ListTickets(ctx context.Context, tx *gorm.DB) ([]Ticket, error) {
	if tx == nil {
		tx = r.db
	}
	var tickets []Ticket
	if err := tx.WithContext(ctx).Order("purchase_time ASC").Find(&tickets).Error; err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

func (r *GameRepositoryImpl) TicketsByPlayer(ctx context.Context, playerID string) ([]Ticket, error) {
	var tickets []Ticket
	err := r.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("purchase_time ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list player tickets: %w", err)
	}
	return tickets, nil
}

func (r *GameRepositoryImpl) CountTickets(ctx context.Context, tx *gorm.DB) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	var count int64
	if err := tx.WithContext(ctx).Model(&Ticket{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count tickets: %w", err)
	}
	return count, nil
}

func (r *GameRepositoryImpl) DeleteTicket(ctx context.Context, tx *gorm.DB, ticketID string) error {
	result := tx.WithContext(ctx).Where("ticket_id = ?", ticketID).Delete(&Ticket{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete ticket: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// DeleteTicketsBatch removes one bounded batch in its own transaction. The
// caller chunks ids to BatchLimit and commits batch by batch.
func (r *GameRepositoryImpl) DeleteTicketsBatch(ctx context.Context, ticketIDs []string) error {
	if len(ticketIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Where("ticket_id IN ?", ticketIDs).Delete(&Ticket{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete ticket batch: %w", err)
	}
	return nil
}

func (r *GameRepositoryImpl) AllTicketIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&Ticket{}).Pluck("ticket_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket ids: %w", err)
	}
	return ids, nil
}

// UpsertWinRecords inserts win rows, silently keeping existing ones: the
// composite (ticket, tier) primary key makes re-derived wins no-ops.
func (r *GameRepositoryImpl) UpsertWinRecords(ctx context.Context, tx *gorm.DB, records []*WinRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(records).Error
	if err != nil {
		return fmt.Errorf("failed to upsert win records: %w", err)
	}
	return nil
}

func (r *GameRepositoryImpl) ListWinRecords(ctx context.Context) ([]WinRecord, error) {
	var records []WinRecord
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list win records: %w", err)
	}
	return records, nil
}

func (r *GameRepositoryImpl) AllWinRecordIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&WinRecord{}).Pluck("win_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list win record ids: %w", err)
	}
	return ids, nil
}

func (r *GameRepositoryImpl) DeleteWinRecordsBatch(ctx context.Context, winIDs []string) error {
	if len(winIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Where("win_id IN ?", winIDs).Delete(&WinRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete win record batch: %w", err)
	}
	return nil
}
