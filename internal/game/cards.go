package game

import (
	"math/rand"
	"sort"
)

const (
	// TicketSize is the number of distinct numbers on one card.
	TicketSize = 15
	// MaxNumber is the top of the 1..90 universe.
	MaxNumber = 90
)

// columnPools returns the nine decade pools 1-9, 10-19, ..., 80-90. The
// first column holds 9 numbers, the last 11, the rest 10.
func columnPools() [][]int {
	pools := make([][]int, 9)
	for n := 1; n <= MaxNumber; n++ {
		col := n / 10
		if col > 8 {
			col = 8
		}
		pools[col] = append(pools[col], n)
	}
	return pools
}

// GenerateSingleTicket draws 15 distinct numbers with the two-stage column
// sampling: pick a non-empty column uniformly, then a remaining number in it
// uniformly. Columns are equally likely to contribute regardless of width,
// which skews the result away from a flat draw over 1..90 on purpose.
func GenerateSingleTicket() []int {
	pools := columnPools()
	numbers := make([]int, 0, TicketSize)

	for len(numbers) < TicketSize {
		col := rand.Intn(len(pools))
		pool := pools[col]
		if len(pool) == 0 {
			continue
		}
		idx := rand.Intn(len(pool))
		numbers = append(numbers, pool[idx])
		pools[col] = append(pool[:idx], pool[idx+1:]...)
	}

	sort.Ints(numbers)
	return numbers
}

// GenerateBundle shuffles 1..90 once and slices the result into six cards of
// 15, each sorted ascending. The six cards are pairwise disjoint and jointly
// cover every number exactly once.
func GenerateBundle() [][]int {
	all := make([]int, MaxNumber)
	for i := range all {
		all[i] = i + 1
	}
	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })

	tickets := make([][]int, 0, 6)
	for i := 0; i < MaxNumber; i += TicketSize {
		card := make([]int, TicketSize)
		copy(card, all[i:i+TicketSize])
		sort.Ints(card)
		tickets = append(tickets, card)
	}
	return tickets
}
