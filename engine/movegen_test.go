package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func requireUniqueMoves(t *testing.T, candidates []Candidate) {
	t.Helper()
	seen := make(map[Move]bool, len(candidates))
	for _, c := range candidates {
		require.False(t, seen[c.Move()], "duplicate candidate %s", c.Move())
		seen[c.Move()] = true
	}
}

func TestGenerateCandidatesOpening(t *testing.T) {
	for _, size := range SupportedSizes {
		b := NewBoard(size)
		candidates := GenerateCandidates(b, PlayerBlack, GenerateOptions{Difficulty: DifficultyNormal})
		require.Len(t, candidates, 9)
		mid := size / 2
		for _, c := range candidates {
			require.Equal(t, ReasonOpening, c.Reason)
			require.LessOrEqual(t, abs(c.X-mid), 1)
			require.LessOrEqual(t, abs(c.Y-mid), 1)
		}
		require.Contains(t, candidates, Candidate{X: mid, Y: mid, Reason: ReasonOpening})
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestGenerateCandidatesWinFirst(t *testing.T) {
	b := boardWith(t, 15, row(7, 3, 4, 5, 6), row(8, 3, 4, 5))
	candidates := GenerateCandidates(b, PlayerBlack, GenerateOptions{Difficulty: DifficultyHard})
	require.NotEmpty(t, candidates)
	require.Equal(t, ReasonWinNow, candidates[0].Reason)
	require.Contains(t, []Move{{X: 2, Y: 7}, {X: 7, Y: 7}}, candidates[0].Move())
	require.Equal(t, float64(ThreatFive.Score()), candidates[0].Score)
	requireUniqueMoves(t, candidates)
}

func TestGenerateCandidatesBlockFive(t *testing.T) {
	b := boardWith(t, 15, row(9, 3, 4), row(7, 3, 4, 5, 6))
	candidates := GenerateCandidates(b, PlayerBlack, GenerateOptions{Difficulty: DifficultyNormal})
	require.NotEmpty(t, candidates)
	require.Equal(t, ReasonBlockFive, candidates[0].Reason)
	require.Contains(t, []Move{{X: 2, Y: 7}, {X: 7, Y: 7}}, candidates[0].Move())
	requireUniqueMoves(t, candidates)
}

func TestGenerateCandidatesForcedPrefixIsSorted(t *testing.T) {
	b := boardWith(t, 15, row(9, 6, 7), row(7, 6, 7, 8))
	candidates := GenerateCandidates(b, PlayerBlack, GenerateOptions{Difficulty: DifficultyNormal})
	require.NotEmpty(t, candidates)
	reasons := make(map[string]bool)
	for _, c := range candidates {
		reasons[c.Reason] = true
	}
	require.True(t, reasons[ReasonBlockLiveFourSetup] || reasons[ReasonMustBlock] || reasons[ReasonBlockLiveFour])
	requireUniqueMoves(t, candidates)
}

func TestGenerateCandidatesPadsQuietPositions(t *testing.T) {
	b := boardWith(t, 15, []Move{{X: 7, Y: 7}}, nil)
	candidates := GenerateCandidates(b, PlayerWhite, GenerateOptions{Limit: 5})
	require.Len(t, candidates, minCandidates)
	requireUniqueMoves(t, candidates)

	candidates = GenerateCandidates(b, PlayerWhite, GenerateOptions{Limit: 10})
	require.Len(t, candidates, 10)
	for _, c := range candidates {
		require.True(t, hasNeighbor(b, c.X, c.Y, nearDistance))
		require.True(t, b.IsEmpty(c.X, c.Y))
	}
}

func TestGenerateCandidatesLeavesBoardUntouched(t *testing.T) {
	b := boardWith(t, 15,
		[]Move{{X: 7, Y: 7}, {X: 8, Y: 8}, {X: 6, Y: 8}},
		[]Move{{X: 7, Y: 8}, {X: 9, Y: 9}})
	before := b.Clone()
	GenerateCandidates(b, PlayerWhite, GenerateOptions{Difficulty: DifficultyHard, Precise: true})
	require.True(t, before.Equal(b))
}

func TestDifficultyLimit(t *testing.T) {
	require.Equal(t, 10, difficultyLimit(DifficultyEasy, false))
	require.Equal(t, 14, difficultyLimit(DifficultyNormal, false))
	require.Equal(t, 18, difficultyLimit(DifficultyHard, false))
	require.Equal(t, 26, difficultyLimit(DifficultyHard, true))
}

func TestReasonFromPattern(t *testing.T) {
	require.Equal(t, ReasonWinNow, reasonFromPattern(ThreatFive, ThreatFive))
	require.Equal(t, ReasonBlockFive, reasonFromPattern(ThreatLiveFour, ThreatFive))
	require.Equal(t, ReasonCreateLiveFour, reasonFromPattern(ThreatLiveFour, ThreatLiveFour))
	require.Equal(t, ReasonBlockRushFour, reasonFromPattern(ThreatLiveThree, ThreatRushFour))
	require.Equal(t, ReasonJumpThree, reasonFromPattern(ThreatSleepThree, ThreatLiveThree))
	require.Equal(t, "", reasonFromPattern(ThreatLiveTwo, ThreatSleepTwo))
}

func TestMultiLineBlockScore(t *testing.T) {
	b := boardWith(t, 15, nil, []Move{{X: 5, Y: 7}, {X: 6, Y: 7}, {X: 7, Y: 5}, {X: 7, Y: 6}})
	score := multiLineBlockScore(b, 7, 7, PlayerWhite)
	// two lines of 4+3 plus the crossing bonus
	require.Equal(t, 7+7+4, score)
	require.Equal(t, 0, multiLineBlockScore(b, 0, 14, PlayerWhite))
}
