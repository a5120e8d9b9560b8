package game_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tombola_service/internal/game"
)

func TestExpectedDrawCount(t *testing.T) {
	start := time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC)
	target := start.Add(90 * time.Minute) // one number per minute

	require.Equal(t, 0, game.ExpectedDrawCount(start, target, start))
	require.Equal(t, 0, game.ExpectedDrawCount(start, target, start.Add(-time.Hour)))
	require.Equal(t, 1, game.ExpectedDrawCount(start, target, start.Add(time.Minute)))
	require.Equal(t, 45, game.ExpectedDrawCount(start, target, start.Add(45*time.Minute)))
	require.Equal(t, 90, game.ExpectedDrawCount(start, target, target))
	require.Equal(t, 90, game.ExpectedDrawCount(start, target, target.Add(time.Hour)))
}

func TestExpectedDrawCountDegenerateWindow(t *testing.T) {
	now := time.Now()
	require.Equal(t, 90, game.ExpectedDrawCount(now, now, now))
	require.Equal(t, 90, game.ExpectedDrawCount(now, now.Add(-time.Minute), now))
	// A window shorter than 90ns leaves less than one tick per number.
	require.Equal(t, 90, game.ExpectedDrawCount(now, now.Add(50*time.Nanosecond), now.Add(time.Second)))
}
