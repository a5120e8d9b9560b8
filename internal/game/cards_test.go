package game_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tombola_service/internal/game"
)

func TestGenerateSingleTicketShape(t *testing.T) {
	for i := 0; i < 500; i++ {
		numbers := game.GenerateSingleTicket()
		require.Len(t, numbers, game.TicketSize)

		seen := make(map[int]bool, len(numbers))
		for j, n := range numbers {
			require.GreaterOrEqual(t, n, 1)
			require.LessOrEqual(t, n, game.MaxNumber)
			require.False(t, seen[n], "duplicate number %d", n)
			seen[n] = true
			if j > 0 {
				require.Greater(t, n, numbers[j-1], "numbers must be strictly ascending")
			}
		}
	}
}

func TestGenerateBundleCoversUniverse(t *testing.T) {
	for i := 0; i < 100; i++ {
		tickets := game.GenerateBundle()
		require.Len(t, tickets, 6)

		seen := make(map[int]bool, game.MaxNumber)
		for _, ticket := range tickets {
			require.Len(t, ticket, game.TicketSize)
			for j, n := range ticket {
				require.False(t, seen[n], "number %d appears on two bundle tickets", n)
				seen[n] = true
				if j > 0 {
					require.Greater(t, n, ticket[j-1])
				}
			}
		}
		require.Len(t, seen, game.MaxNumber, "bundle must cover 1..90 exactly")
	}
}
