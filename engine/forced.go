package engine

import (
	"math"
	"sort"
)

const (
	ReasonBlockWin     = "block_win"
	ReasonStopThreat   = "stop_threat"
	ReasonStopVCF      = "stop_vcf"
	ReasonVCFStart     = "vcf_start"
	ReasonVCTTry       = "vct_try"
	ReasonMinThreat    = "min_threat"
	ReasonAvoidLoss    = "avoid_loss"
	ReasonEndgameSolve = "endgame_solve"
)

type forcedResult struct {
	best   *Candidate
	locked bool
}

func candidateAt(m Move, score float64, reason string) *Candidate {
	return &Candidate{X: m.X, Y: m.Y, Score: score, Reason: reason}
}

// withStone runs fn with p's stone at m and restores the cell afterwards.
func (s *searcher) withStone(m Move, p Player, fn func()) {
	idx := s.board.index(m.X, m.Y)
	s.board.cells[idx] = p.Cell()
	defer func() { s.board.cells[idx] = CellEmpty }()
	fn()
}

type blockScore struct {
	score int
	count int
}

// preSearchForced resolves positions whose answer does not need a tree search.
// Each stage short-circuits the rest; a locked result also skips the deep search.
func (s *searcher) preSearchForced() forcedResult {
	b := s.board
	player := s.player
	opp := player.Other()

	if wins := ImmediateWins(b, player); len(wins) > 0 {
		return forcedResult{best: candidateAt(wins[0], WinScore, ReasonWinNow), locked: true}
	}
	if blocks := ImmediateBlocks(b, player); len(blocks) > 0 {
		return forcedResult{best: candidateAt(blocks[0], WinScore-1, ReasonBlockWin), locked: true}
	}

	if mustBlocks := MustBlockCellsForOpponentThreat(b, player); len(mustBlocks) > 0 {
		if len(mustBlocks) == 1 {
			return forcedResult{best: candidateAt(mustBlocks[0], float64(ThreatLiveFour.Score()), ReasonStopThreat), locked: true}
		}
		if best := s.pickMustBlock(mustBlocks); best != nil {
			return forcedResult{best: best, locked: true}
		}
	}

	if starts := LiveFourCreationPoints(b, opp); len(starts) > 0 {
		score := float64(ThreatLiveFour.Score() - 2)
		if len(starts) == 1 {
			return forcedResult{best: candidateAt(starts[0], score, ReasonBlockLiveFourSetup), locked: true}
		}
		bestThreats := math.MaxInt
		var best *Candidate
		for _, m := range starts {
			var threats int
			s.withStone(m, player, func() {
				threats = CountImmediateStrongThreats(s.board, opp)
			})
			if threats < bestThreats {
				bestThreats = threats
				best = candidateAt(m, score, ReasonBlockLiveFourSetup)
			}
		}
		if best != nil {
			return forcedResult{best: best, locked: true}
		}
	}

	if vcf := s.runVCF(player); vcf != nil {
		return forcedResult{best: vcf, locked: true}
	}

	if s.opts.Difficulty != DifficultyHard {
		if vcf := s.runVCF(opp); vcf != nil {
			return forcedResult{best: candidateAt(vcf.Move(), float64(ThreatLiveFour.Score()), ReasonStopVCF), locked: true}
		}
	}

	doubleThrees := DoubleLiveThreePivotsForOpponent(b, player)
	if len(doubleThrees) > 0 {
		sorted := append([]Move(nil), doubleThrees...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.centerDistance(sorted[i]) < b.centerDistance(sorted[j])
		})
		return forcedResult{best: candidateAt(sorted[0], float64(ThreatLiveThree.Score()+50), ReasonBlockDoubleThree)}
	}

	if s.opts.Difficulty != DifficultyHard {
		if best := s.pickPooledDefense(); best != nil {
			return forcedResult{best: best, locked: true}
		}
	}
	return forcedResult{}
}

// pickMustBlock chooses among several must-block cells with a one-ply lookahead:
// route score behind the cell minus what the opponent still threatens after the
// block, then cell multiplicity, then distance to the center.
func (s *searcher) pickMustBlock(cells []Move) *Candidate {
	b := s.board
	opp := s.player.Other()
	scores := make(map[Move]blockScore)
	for _, route := range ScanThreatRoutes(b, opp) {
		for _, c := range route.MustBlock {
			bs := scores[c]
			bs.score += route.Type.Score()
			bs.count++
			scores[c] = bs
		}
	}

	var best *Candidate
	bestScore := math.Inf(-1)
	bestCount := math.MinInt
	bestDist := math.Inf(1)
	for _, m := range cells {
		if b.At(m.X, m.Y) != CellEmpty {
			continue
		}
		info := scores[m]
		var oppScore float64
		s.withStone(m, s.player, func() {
			wins := len(ImmediateWins(s.board, opp))
			strong := CountImmediateStrongThreats(s.board, opp)
			oppScore = float64(wins*WinScore + strong*1000)
		})
		defensive := float64(info.score) - oppScore
		dist := b.centerDistance(m)
		if defensive > bestScore ||
			(defensive == bestScore && info.count > bestCount) ||
			(defensive == bestScore && info.count == bestCount && dist < bestDist) {
			bestScore = defensive
			bestCount = info.count
			bestDist = dist
			best = candidateAt(m, float64(ThreatLiveFour.Score()), ReasonStopThreat)
		}
	}
	return best
}

// pickPooledDefense tries every defensive cell kind and keeps the one that leaves
// the opponent the fewest strong threats.
func (s *searcher) pickPooledDefense() *Candidate {
	b := s.board
	player := s.player
	opp := player.Other()
	forks := ForkThreatMovesForOpponent(b, player)

	type pooled struct {
		move   Move
		score  int
		reason string
	}
	var pool []pooled
	index := make(map[Move]int)
	add := func(moves []Move, score int, reason string) {
		for _, m := range moves {
			// later kinds overwrite earlier ones but keep the first position
			if i, ok := index[m]; ok {
				pool[i] = pooled{move: m, score: score, reason: reason}
				continue
			}
			index[m] = len(pool)
			pool = append(pool, pooled{move: m, score: score, reason: reason})
		}
	}
	add(DoubleLiveThreePivotsForOpponent(b, player), ThreatLiveThree.Score()+50, ReasonBlockDoubleThree)
	add(forks, ThreatLiveFour.Score(), ReasonForkBlock)
	add(ForkPivotsForOpponent(b, player), ThreatLiveFour.Score(), ReasonForkPivotBlock)
	add(LiveFourCreationPoints(b, opp), ThreatLiveFour.Score(), ReasonBlockLiveFourSetup)
	add(LiveThreeOpenEnds(b, opp), ThreatLiveThree.Score(), ReasonBlockLiveThreeEnd)
	add(FourCreationPoints(b, opp), ThreatRushFour.Score(), ReasonBlockFourSetup)
	add(LiveThreeCreationPoints(b, opp), ThreatLiveThree.Score(), ReasonBlockLiveThreeSetup)

	var best *Candidate
	bestThreats := math.MaxInt
	bestDist := math.Inf(1)
	for _, p := range pool {
		if b.At(p.move.X, p.move.Y) != CellEmpty {
			continue
		}
		var threats int
		s.withStone(p.move, player, func() {
			threats = CountImmediateStrongThreats(s.board, opp)
		})
		dist := b.centerDistance(p.move)
		if threats < bestThreats || (threats == bestThreats && dist < bestDist) {
			bestThreats = threats
			bestDist = dist
			reason := p.reason
			if reason == "" {
				reason = ReasonMinThreat
			}
			best = candidateAt(p.move, float64(p.score), reason)
		}
	}
	return best
}
