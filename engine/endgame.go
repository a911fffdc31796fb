package engine

import (
	"math"
	"sort"
)

type endgameResult struct {
	best  *Candidate
	score float64
	depth int
}

func (s *searcher) endgameThreshold() int {
	threshold := 10
	if s.board.size == 19 {
		threshold = 8
	}
	if s.opts.Precise {
		threshold += 2
	}
	return threshold
}

func (s *searcher) inEndgame() bool {
	return s.board.CountEmpty() <= s.endgameThreshold()
}

// endgameMoves lists every empty cell, own wins first, then blocks, then cells
// with the strongest local shape.
func (s *searcher) endgameMoves(current Player) []Candidate {
	b := s.board
	opp := current.Other()
	var moves []Candidate
	for i, c := range b.cells {
		if c != CellEmpty {
			continue
		}
		m := b.Coord(i)
		var score float64
		switch {
		case isFiveAt(b, m.X, m.Y, current):
			score = WinScore
		case isFiveAt(b, m.X, m.Y, opp):
			score = WinScore - 1
		default:
			score = float64(EvaluatePoint(b, m.X, m.Y, current).Total + EvaluatePoint(b, m.X, m.Y, opp).Total)
		}
		moves = append(moves, Candidate{X: m.X, Y: m.Y, Score: score, Reason: ReasonEndgameSolve})
	}
	sort.SliceStable(moves, func(i, j int) bool {
		return moves[i].Score > moves[j].Score
	})
	return moves
}

// solveEndgame runs an exact alpha-beta to the end of the game. ok is false when
// the deadline interrupts it.
func (s *searcher) solveEndgame() (endgameResult, bool) {
	depth := s.board.CountEmpty()
	aborted := false
	score, best := s.exactSearch(s.player, math.Inf(-1), math.Inf(1), 0, s.hash, &aborted)
	if aborted || best == nil {
		return endgameResult{}, false
	}
	best.Score = score
	return endgameResult{best: best, score: score, depth: depth}, true
}

func (s *searcher) exactSearch(current Player, alpha, beta float64, ply int, hash uint32, aborted *bool) (float64, *Candidate) {
	if s.timeUp() {
		*aborted = true
		return 0, nil
	}
	s.stats.Nodes++
	s.stats.EndgameNodes++
	remaining := s.board.CountEmpty()
	if remaining == 0 {
		return 0, nil
	}

	key := sideKey(hash, current)
	if entry, ok := s.tt.Probe(key); ok && entry.Depth >= remaining {
		score := float64(entry.Score)
		switch entry.Flag {
		case TTExact:
			if entry.HasBest {
				b := entry.Best
				return score, &b
			}
		case TTLower:
			alpha = math.Max(alpha, score)
		case TTUpper:
			beta = math.Min(beta, score)
		}
		if alpha >= beta && entry.HasBest {
			b := entry.Best
			return score, &b
		}
	}

	alphaOrig := alpha
	bestScore := math.Inf(-1)
	var best *Candidate
	for _, m := range s.endgameMoves(current) {
		idx, next := s.place(m.Move(), current, hash)
		var score float64
		if isFiveAt(s.board, m.X, m.Y, current) {
			score = float64(WinScore - ply)
		} else {
			score, _ = s.exactSearch(current.Other(), -beta, -alpha, ply+1, next, aborted)
			score = -score
		}
		s.unplace(idx)
		if *aborted {
			return 0, nil
		}
		if score > bestScore {
			bestScore = score
			mv := m
			best = &mv
		}
		alpha = math.Max(alpha, score)
		if alpha >= beta {
			break
		}
	}

	flag := TTExact
	switch {
	case bestScore <= alphaOrig:
		flag = TTUpper
	case bestScore >= beta:
		flag = TTLower
	}
	s.tt.Store(key, remaining, bestScore, flag, best)
	return bestScore, best
}
