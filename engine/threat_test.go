package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		total, opens int
		want         ThreatType
	}{
		{6, 0, ThreatFive},
		{5, 0, ThreatFive},
		{4, 2, ThreatLiveFour},
		{4, 1, ThreatRushFour},
		{4, 0, ThreatNone},
		{3, 2, ThreatLiveThree},
		{3, 1, ThreatSleepThree},
		{3, 0, ThreatNone},
		{2, 2, ThreatLiveTwo},
		{2, 1, ThreatSleepTwo},
		{1, 2, ThreatNone},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, classify(tc.total, tc.opens), "total=%d opens=%d", tc.total, tc.opens)
	}
}

func TestThreatTypeText(t *testing.T) {
	var typ ThreatType
	require.NoError(t, typ.UnmarshalText([]byte("LIVE_FOUR")))
	require.Equal(t, ThreatLiveFour, typ)
	require.Error(t, typ.UnmarshalText([]byte("SIX")))
	require.Equal(t, 20000, ThreatLiveFour.Score())
	require.Equal(t, 0, ThreatType(42).Score())

	out, err := json.Marshal(ThreatRoute{Type: ThreatRushFour})
	require.NoError(t, err)
	require.Contains(t, string(out), `"type":"RUSH_FOUR"`)
	require.Contains(t, string(out), `"must_block_cells"`)
}

func TestAnalyzeLineJumpThree(t *testing.T) {
	// . X . X [X] . . on row 7
	b := boardWith(t, 15, row(7, 5, 7), nil)
	info := analyzeLine(b, 8, 7, PlayerBlack, 1, 0)
	require.Equal(t, ThreatLiveThree, info.typ)
	require.ElementsMatch(t, []Move{{X: 4, Y: 7}, {X: 9, Y: 7}}, info.ends())
}

func TestAnalyzeLineBrokenFour(t *testing.T) {
	// . X . X [X] X . upgrades the contiguous three to a rush four
	b := boardWith(t, 15, row(7, 5, 7, 9), nil)
	info := analyzeLine(b, 8, 7, PlayerBlack, 1, 0)
	require.Equal(t, ThreatRushFour, info.typ)
	require.Equal(t, ThreatRushFour.Score(), info.score)
}

func TestAnalyzeLineBlockedByOpponent(t *testing.T) {
	b := boardWith(t, 15, row(7, 5, 6), row(7, 4, 8))
	info := analyzeLine(b, 7, 7, PlayerBlack, 1, 0)
	require.Equal(t, ThreatNone, info.typ)
}

func TestEvaluatePointTracksTwoBestLines(t *testing.T) {
	b := boardWith(t, 15, append(row(7, 5, 6), column(7, 5, 6)...), nil)
	eval := EvaluatePoint(b, 7, 7, PlayerBlack)
	require.Equal(t, ThreatLiveThree, eval.Best)
	require.Equal(t, ThreatLiveThree.Score(), eval.BestScore)
	require.Equal(t, ThreatLiveThree.Score(), eval.SecondBest)
	require.GreaterOrEqual(t, eval.Total, 2*ThreatLiveThree.Score())
}

func TestScanThreatRoutesLiveThree(t *testing.T) {
	b := boardWith(t, 15, row(7, 6, 7, 8), nil)
	routes := ScanThreatRoutes(b, PlayerBlack)
	require.NotEmpty(t, routes)
	require.Equal(t, ThreatLiveFour, routes[0].Type)

	var fourPivots []Move
	for i, r := range routes {
		if i > 0 {
			require.GreaterOrEqual(t, routes[i-1].Score, r.Score)
		}
		require.LessOrEqual(t, len(r.LineCells), 5)
		if r.Type == ThreatLiveFour {
			require.Len(t, r.MustBlock, 1)
			fourPivots = append(fourPivots, r.MustBlock[0])
		}
	}
	require.ElementsMatch(t, []Move{{X: 5, Y: 7}, {X: 9, Y: 7}}, fourPivots)

	require.Empty(t, ScanThreatRoutes(NewBoard(15), PlayerBlack))
}

func TestLineCellsNearEdge(t *testing.T) {
	b := NewBoard(15)
	require.Equal(t, row(0, 0, 1, 2, 3, 4), lineCells(b, 0, 0, 1, 0))
	require.Equal(t, row(3, 3, 4, 5, 6, 7), lineCells(b, 7, 3, 1, 0))
	require.Equal(t, row(2, 10, 11, 12, 13, 14), lineCells(b, 14, 2, 1, 0))
}

func TestThreatOverviewLimits(t *testing.T) {
	b := boardWith(t, 15,
		[]Move{{X: 7, Y: 7}, {X: 8, Y: 7}, {X: 7, Y: 8}, {X: 3, Y: 3}},
		[]Move{{X: 9, Y: 9}, {X: 10, Y: 9}, {X: 11, Y: 11}, {X: 12, Y: 3}})
	self, opp := ThreatOverview(b, PlayerBlack)
	require.LessOrEqual(t, len(self), 3)
	require.LessOrEqual(t, len(opp), 2)
	for _, r := range self {
		require.Equal(t, PlayerBlack, r.Player)
	}
	for _, r := range opp {
		require.Equal(t, PlayerWhite, r.Player)
	}
	require.Len(t, KeyThreats(b, PlayerBlack), len(self)+len(opp))
}

func TestImmediateWinsAndBlocks(t *testing.T) {
	b := boardWith(t, 15, row(7, 3, 4, 5, 6), nil)
	want := []Move{{X: 2, Y: 7}, {X: 7, Y: 7}}
	require.Equal(t, want, ImmediateWins(b, PlayerBlack))
	require.Equal(t, want, ImmediateBlocks(b, PlayerWhite))
	require.Empty(t, ImmediateWins(b, PlayerWhite))
}

func TestLiveThreeOpenEnds(t *testing.T) {
	b := boardWith(t, 15, row(7, 6, 7, 8), nil)
	require.Equal(t, []Move{{X: 5, Y: 7}, {X: 9, Y: 7}}, LiveThreeOpenEnds(b, PlayerBlack))

	b = boardWith(t, 15, row(7, 6, 7, 8), row(7, 5))
	require.Empty(t, LiveThreeOpenEnds(b, PlayerBlack))
}

func TestCreationPoints(t *testing.T) {
	b := boardWith(t, 15, row(7, 6, 7, 8), nil)
	require.ElementsMatch(t, []Move{{X: 5, Y: 7}, {X: 9, Y: 7}}, LiveFourCreationPoints(b, PlayerBlack))
	require.Subset(t, FourCreationPoints(b, PlayerBlack), []Move{{X: 5, Y: 7}, {X: 9, Y: 7}})

	b = boardWith(t, 15, row(7, 6, 7), nil)
	require.Subset(t, LiveThreeCreationPoints(b, PlayerBlack), []Move{{X: 5, Y: 7}, {X: 8, Y: 7}})
}

func TestComboAndDoubleThreePivots(t *testing.T) {
	b := boardWith(t, 15, append(row(7, 5, 6), column(7, 5, 6)...), nil)
	require.Contains(t, ComboThreatPivots(b, PlayerBlack), Move{X: 7, Y: 7})
	require.Contains(t, DoubleLiveThreePivotsForOpponent(b, PlayerWhite), Move{X: 7, Y: 7})
	require.Empty(t, ComboThreatPivots(b, PlayerWhite))
}

func TestForkThreatMoves(t *testing.T) {
	b := boardWith(t, 15, append(row(7, 4, 5, 6), column(7, 4, 5, 6)...), nil)
	forks := ForkThreatMovesForOpponent(b, PlayerWhite)
	require.Contains(t, forks, Move{X: 7, Y: 7})
	require.Equal(t, forks, ForkPivotsForOpponent(b, PlayerWhite))
}

func TestTwoStepSetupsRestoreBoard(t *testing.T) {
	b := boardWith(t, 15, row(7, 7, 8), nil)
	before := b.Clone()
	setups := TwoStepThreatSetups(b, PlayerBlack)
	require.Contains(t, setups, Move{X: 9, Y: 7})
	require.Contains(t, setups, Move{X: 6, Y: 7})
	require.True(t, before.Equal(b))
	require.Greater(t, CountImmediateStrongThreats(b, PlayerBlack), 0)
	require.Equal(t, 0, CountImmediateStrongThreats(b, PlayerWhite))
}

func TestMustBlockCellsForOpponentFour(t *testing.T) {
	b := boardWith(t, 15, row(7, 2), row(7, 3, 4, 5, 6))
	cells := MustBlockCellsForOpponentThreat(b, PlayerBlack)
	require.Contains(t, cells, Move{X: 7, Y: 7})
	seen := make(map[Move]bool)
	for _, c := range cells {
		require.False(t, seen[c], "duplicate cell %s", c)
		seen[c] = true
	}
}
