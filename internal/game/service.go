package game

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tombola_service/internal/ledger"
	"tombola_service/internal/logger"
)

const (
	MaxRetries = 3
	RetryDelay = 10 * time.Millisecond
)

var (
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrTicketLimit     = errors.New("ticket limit reached")
	ErrRefundLocked    = errors.New("refund not allowed while game is active or completed")
	ErrInvalidAmount   = errors.New("amount must be positive")
)

// Service owns the tombola lifecycle: ticket sales, the extraction draw, win
// detection, refunds and the jackpot. Single operations run as one store
// transaction each; the two bulk paths (mass refund, reset) commit bounded
// batches sequentially and are documented as non-atomic end to end.
type Service struct {
	db     *gorm.DB
	repo   GameRepository
	ledger *ledger.Service
}

func NewService(db *gorm.DB, repo GameRepository, ledgerSvc *ledger.Service) *Service {
	return &Service{db: db, repo: repo, ledger: ledgerSvc}
}

// withRetry re-runs fn while it loses the optimistic version race on the
// config row.
func (s *Service) withRetry(fn func() error) error {
	var err error
	for i := 0; i < MaxRetries; i++ {
		err = fn()
		if !errors.Is(err, ErrOptimisticLock) {
			return err
		}
		time.Sleep(RetryDelay)
	}
	return err
}

// BuyTickets sells quantity tickets to one player. A quantity of exactly six
// is the flat-priced bundle whose cards jointly cover 1..90; any other
// positive quantity buys independent single cards at unit price. The ticket
// rows, both cash book deposits and the jackpot increment commit together.
func (s *Service) BuyTickets(ctx context.Context, playerID, playerName string, quantity int) ([]Ticket, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if _, err := s.repo.GetOrCreateConfig(ctx); err != nil {
		return nil, err
	}

	var cards [][]int
	if quantity == ledger.BundleSize {
		cards = GenerateBundle()
	} else {
		cards = make([][]int, 0, quantity)
		for i := 0; i < quantity; i++ {
			cards = append(cards, GenerateSingleTicket())
		}
	}

	var created []Ticket
	err := s.withRetry(func() error {
		created = nil
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			cfg, err := s.repo.GetConfig(ctx, tx)
			if err != nil {
				return err
			}
			count, err := s.repo.CountTickets(ctx, tx)
			if err != nil {
				return err
			}
			if count+int64(quantity) > int64(cfg.MaxTickets) {
				return ErrTicketLimit
			}

			split := ledger.Split(quantity, cfg.TicketPriceSingle, cfg.TicketPriceBundle)
			var prices []decimal.Decimal
			if quantity == ledger.BundleSize {
				prices = ledger.BundleUnitPrices(split.TotalCost)
			} else {
				prices = make([]decimal.Decimal, quantity)
				for i := range prices {
					prices[i] = cfg.TicketPriceSingle
				}
			}

			now := time.Now()
			tickets := make([]*Ticket, 0, quantity)
			for i, numbers := range cards {
				tickets = append(tickets, &Ticket{
					PlayerID:     playerID,
					PlayerName:   playerName,
					Numbers:      numbers,
					PricePaid:    prices[i],
					PurchaseTime: now,
				})
			}
			if err := s.repo.CreateTickets(ctx, tx, tickets); err != nil {
				return err
			}
			if err := s.ledger.RecordPurchase(ctx, tx, playerName, quantity, split); err != nil {
				return err
			}
			err = s.repo.UpdateConfigVersioned(ctx, tx, cfg.Version, map[string]interface{}{
				"jackpot": cfg.Jackpot.Add(split.JackpotShare),
			})
			if err != nil {
				return err
			}
			for _, t := range tickets {
				created = append(created, *t)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("sold %d ticket(s) to %s", quantity, playerName)
	return created, nil
}

// Draw extracts one previously-unseen number and scans every outstanding
// ticket for new wins. It is a no-op while the game is not active or once
// all 90 numbers are out. The config row is locked for the duration, so
// concurrent manual and scheduled draws serialize and cannot duplicate a
// number.
func (s *Service) Draw(ctx context.Context) (*int, error) {
	if _, err := s.repo.GetOrCreateConfig(ctx); err != nil {
		return nil, err
	}

	var drawn *int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cfg, err := s.repo.GetConfigForUpdate(ctx, tx)
		if err != nil {
			return err
		}
		if cfg.Status != StatusActive || len(cfg.ExtractedNumbers) >= MaxNumber {
			return nil
		}

		extracted := make(map[int]bool, len(cfg.ExtractedNumbers))
		for _, n := range cfg.ExtractedNumbers {
			extracted[n] = true
		}
		// Rejection sampling; terminates because at least one number remains.
		number := rand.Intn(MaxNumber) + 1
		for extracted[number] {
			number = rand.Intn(MaxNumber) + 1
		}
		extracted[number] = true
		newNumbers := append(append([]int(nil), cfg.ExtractedNumbers...), number)

		tickets, err := s.repo.ListTickets(ctx, tx)
		if err != nil {
			return err
		}
		var wins []*WinRecord
		for _, t := range tickets {
			matched := make([]int, 0, len(t.Numbers))
			for _, n := range t.Numbers {
				if extracted[n] {
					matched = append(matched, n)
				}
			}
			tier, ok := tierByMatches[len(matched)]
			if !ok {
				continue
			}
			wins = append(wins, &WinRecord{
				WinID:          WinRecordID(t.TicketID, tier),
				TicketID:       t.TicketID,
				PlayerName:     t.PlayerName,
				Tier:           tier,
				MatchedNumbers: matched,
			})
		}
		if err := s.repo.UpsertWinRecords(ctx, tx, wins); err != nil {
			return err
		}
		err = s.repo.UpdateConfig(ctx, tx, map[string]interface{}{
			"extracted_numbers": datatypes.JSONSlice[int](newNumbers),
		})
		if err != nil {
			return err
		}
		drawn = &number
		return nil
	})
	if err != nil {
		return nil, err
	}
	if drawn != nil {
		logger.Infof("drew number %d", *drawn)
	}
	return drawn, nil
}

// RefundTicket cancels one ticket while the game is still pending. The
// deletion, both withdrawal rows and the jackpot decrement commit together.
func (s *Service) RefundTicket(ctx context.Context, ticketID string) error {
	if _, err := s.repo.GetOrCreateConfig(ctx); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cfg, err := s.repo.GetConfigForUpdate(ctx, tx)
		if err != nil {
			return err
		}
		if cfg.Status == StatusActive || cfg.Status == StatusCompleted {
			return ErrRefundLocked
		}
		ticket, err := s.repo.GetTicket(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if err := s.repo.DeleteTicket(ctx, tx, ticketID); err != nil {
			return err
		}
		amount := refundAmountFor(ticket, cfg)
		if err := s.ledger.RecordRefund(ctx, tx, ticket.PlayerName, amount); err != nil {
			return err
		}
		return s.repo.DecrementJackpotFloored(ctx, tx, ledger.JackpotCut(amount))
	})
	if err != nil {
		return err
	}
	logger.Infof("refunded ticket %s", ticketID)
	return nil
}

// refundAmountFor prefers the price actually paid and falls back to the
// current single-ticket price for legacy rows without one. The fallback can
// drift from the historical price if prices changed since purchase.
func refundAmountFor(t *Ticket, cfg *GameConfig) decimal.Decimal {
	if t.PricePaid.IsPositive() {
		return t.PricePaid
	}
	return cfg.TicketPriceSingle
}

// RefundAllForPlayer cancels every ticket a player holds. It reads the
// config and the ticket set once without protection, then deletes in bounded
// batches committed sequentially and finally writes one aggregate refund
// plus a relative jackpot decrement. The operation is NOT atomic end to end:
// a crash between batches leaves some tickets deleted with the ledger and
// jackpot not yet adjusted. Re-running picks up the remaining tickets.
func (s *Service) RefundAllForPlayer(ctx context.Context, playerID, playerName string) (int, error) {
	cfg, err := s.repo.GetOrCreateConfig(ctx)
	if err != nil {
		return 0, err
	}
	tickets, err := s.repo.TicketsByPlayer(ctx, playerID)
	if err != nil {
		return 0, err
	}
	if len(tickets) == 0 {
		return 0, nil
	}

	total := decimal.Zero
	ids := make([]string, 0, len(tickets))
	for i := range tickets {
		total = total.Add(refundAmountFor(&tickets[i], cfg))
		ids = append(ids, tickets[i].TicketID)
	}

	for _, batch := range chunkIDs(ids, BatchLimit) {
		if err := s.repo.DeleteTicketsBatch(ctx, batch); err != nil {
			return 0, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ledger.RecordRefund(ctx, tx, playerName, total); err != nil {
			return err
		}
		return s.repo.DecrementJackpotFloored(ctx, tx, ledger.JackpotCut(total))
	})
	if err != nil {
		return 0, err
	}
	logger.Infof("mass refund: %d ticket(s) for player %s, total %s", len(tickets), playerID, total.String())
	return len(tickets), nil
}

// ResetGame wipes tickets and win records in bounded batches and rewrites
// the config to pristine pending values. Like the mass refund it is not
// atomic across batches, and it carries no status guard: resetting a running
// game is the caller's call.
func (s *Service) ResetGame(ctx context.Context) error {
	if _, err := s.repo.GetOrCreateConfig(ctx); err != nil {
		return err
	}
	ticketIDs, err := s.repo.AllTicketIDs(ctx)
	if err != nil {
		return err
	}
	for _, batch := range chunkIDs(ticketIDs, BatchLimit) {
		if err := s.repo.DeleteTicketsBatch(ctx, batch); err != nil {
			return err
		}
	}
	winIDs, err := s.repo.AllWinRecordIDs(ctx)
	if err != nil {
		return err
	}
	for _, batch := range chunkIDs(winIDs, BatchLimit) {
		if err := s.repo.DeleteWinRecordsBatch(ctx, batch); err != nil {
			return err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.UpdateConfig(ctx, tx, map[string]interface{}{
			"status":            StatusPending,
			"jackpot":           decimal.Zero,
			"extracted_numbers": datatypes.JSONSlice[int]{},
			"game_start_time":   nil,
			"target_date":       nil,
		})
	})
	if err != nil {
		return err
	}
	logger.Infof("game reset: %d ticket(s) and %d win record(s) removed", len(ticketIDs), len(winIDs))
	return nil
}

// StartGame activates the game and stamps the schedule. It deliberately does
// not verify the minimum ticket count; callers are expected to have checked
// MinTicketsToStart before starting.
func (s *Service) StartGame(ctx context.Context, targetDate *time.Time) error {
	if _, err := s.repo.GetOrCreateConfig(ctx); err != nil {
		return err
	}
	return s.withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			cfg, err := s.repo.GetConfig(ctx, tx)
			if err != nil {
				return err
			}
			return s.repo.UpdateConfigVersioned(ctx, tx, cfg.Version, map[string]interface{}{
				"status":          StatusActive,
				"game_start_time": time.Now(),
				"target_date":     targetDate,
			})
		})
	})
}

// EndGame completes the game and clears the schedule target.
func (s *Service) EndGame(ctx context.Context) error {
	if _, err := s.repo.GetOrCreateConfig(ctx); err != nil {
		return err
	}
	return s.withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			cfg, err := s.repo.GetConfig(ctx, tx)
			if err != nil {
				return err
			}
			return s.repo.UpdateConfigVersioned(ctx, tx, cfg.Version, map[string]interface{}{
				"status":      StatusCompleted,
				"target_date": nil,
			})
		})
	})
}

// TransferJackpotToHouse sweeps the jackpot into house revenue: one bar
// deposit for the given amount and the jackpot set to zero unconditionally.
func (s *Service) TransferJackpotToHouse(ctx context.Context, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if _, err := s.repo.GetOrCreateConfig(ctx); err != nil {
		return err
	}
	return s.withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			cfg, err := s.repo.GetConfig(ctx, tx)
			if err != nil {
				return err
			}
			if err := s.ledger.RecordTransfer(ctx, tx, amount); err != nil {
				return err
			}
			return s.repo.UpdateConfigVersioned(ctx, tx, cfg.Version, map[string]interface{}{
				"jackpot": decimal.Zero,
			})
		})
	})
}

// Config returns the singleton game state, creating it on first access.
func (s *Service) Config(ctx context.Context) (*GameConfig, error) {
	return s.repo.GetOrCreateConfig(ctx)
}

func (s *Service) Tickets(ctx context.Context, playerID string) ([]Ticket, error) {
	if playerID != "" {
		return s.repo.TicketsByPlayer(ctx, playerID)
	}
	return s.repo.ListTickets(ctx, nil)
}

func (s *Service) TicketCount(ctx context.Context) (int64, error) {
	return s.repo.CountTickets(ctx, nil)
}

// Wins lists win records in chronological order. With firstPerTier set only
// the first recorded winner of each tier is returned; the engine itself
// records every qualifying ticket and filtering is display policy.
func (s *Service) Wins(ctx context.Context, firstPerTier bool) ([]WinRecord, error) {
	records, err := s.repo.ListWinRecords(ctx)
	if err != nil {
		return nil, err
	}
	if !firstPerTier {
		return records, nil
	}
	seen := make(map[string]bool, 5)
	filtered := make([]WinRecord, 0, 5)
	for _, rec := range records {
		if seen[rec.Tier] {
			continue
		}
		seen[rec.Tier] = true
		filtered = append(filtered, rec)
	}
	return filtered, nil
}

func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}
