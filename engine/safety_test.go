package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvaluateBoardFavoursShape(t *testing.T) {
	require.Zero(t, EvaluateBoard(NewBoard(15), PlayerBlack))

	b := boardWith(t, 15, row(7, 6, 7, 8), nil)
	require.Greater(t, EvaluateBoard(b, PlayerBlack), 0.0)
	require.Less(t, EvaluateBoard(b, PlayerWhite), 0.0)
}

func TestLosesToForcing(t *testing.T) {
	b := boardWith(t, 15, nil, row(7, 5, 6, 7))
	s := newSearcher(b, PlayerBlack, SearchOptions{MaxDepth: 4, TimeBudget: 3 * time.Second, Difficulty: DifficultyHard, Precise: true})

	require.True(t, s.losesToForcing(Move{X: 0, Y: 0}), "ignoring a live three hands white a forcing win")
	require.False(t, s.losesToForcing(Move{X: 8, Y: 7}))
	require.True(t, s.losesToForcing(Move{X: 5, Y: 7}), "occupied cells are never safe")
	require.True(t, b.Equal(s.board), "the probe restores the board")
}

func TestSafetyFilterSwapsLosingMove(t *testing.T) {
	b := boardWith(t, 15, nil, row(7, 5, 6, 7))
	s := newSearcher(b, PlayerBlack, SearchOptions{MaxDepth: 4, TimeBudget: 3 * time.Second, Difficulty: DifficultyHard, Precise: true})

	swapped := s.safetyFilter(&Candidate{X: 0, Y: 0, Reason: ReasonOpening})
	require.Equal(t, ReasonAvoidLoss, swapped.Reason)
	require.NotEqual(t, Move{X: 0, Y: 0}, swapped.Move())
	require.False(t, s.losesToForcing(swapped.Move()))
	require.Equal(t, int64(1), s.stats.SafetySwaps)

	win := &Candidate{X: 1, Y: 1, Reason: ReasonWinNow}
	require.Same(t, win, s.safetyFilter(win))
}
