package game

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"tombola_service/internal/logger"
)

// PollSpec is how often the auto-extraction job checks whether the game has
// fallen behind its nominal pace.
const PollSpec = "@every 10s"

// Scheduler paces an active game toward its target date. Each tick it
// computes how many numbers should be out by now and triggers at most ONE
// draw, even when far behind; the throttle is intentional and means the
// schedule can visibly lag when the poll interval is coarse relative to the
// per-number pace. It runs process-wide, independent of any client, and is
// safe next to manual draws because each draw is itself atomic.
type Scheduler struct {
	svc  *Service
	cron *cron.Cron
}

func NewScheduler(svc *Service) *Scheduler {
	return &Scheduler{svc: svc, cron: cron.New()}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(PollSpec, s.tick); err != nil {
		return err
	}
	s.cron.Start()
	logger.Infof("auto-extraction scheduler started (%s)", PollSpec)
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := s.svc.Config(ctx)
	if err != nil {
		logger.Errorf("scheduler: failed to load config: %v", err)
		return
	}
	if cfg.Status != StatusActive || cfg.GameStartTime == nil || cfg.TargetDate == nil {
		return
	}
	expected := ExpectedDrawCount(*cfg.GameStartTime, *cfg.TargetDate, time.Now())
	if len(cfg.ExtractedNumbers) >= expected {
		return
	}
	if _, err := s.svc.Draw(ctx); err != nil {
		logger.Errorf("scheduler: draw failed: %v", err)
	}
}

// ExpectedDrawCount spreads the 90 numbers evenly across the window from
// game start to target date and returns how many should have been drawn by
// now, clamped to [0, 90]. A window that is already over (or never existed)
// means everything is due.
func ExpectedDrawCount(start, target, now time.Time) int {
	window := target.Sub(start)
	if window <= 0 {
		return MaxNumber
	}
	perNumber := window / MaxNumber
	if perNumber <= 0 {
		// Window shorter than one tick per number truncates to zero.
		return MaxNumber
	}
	elapsed := now.Sub(start)
	if elapsed < 0 {
		return 0
	}
	expected := int(elapsed / perNumber)
	if expected > MaxNumber {
		expected = MaxNumber
	}
	return expected
}
