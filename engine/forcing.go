package engine

import (
	"strings"
	"time"
)

const (
	vctDepth      = 4
	vctCandidates = 12
	vctReplies    = 6
	// Forcing searches may use this share of the remaining budget.
	forcingBudgetDivisor = 3
)

type vcfKey struct {
	hash     uint32
	attacker Player
	depth    int
}

// forcingDeadline bounds a forcing search so the main search keeps most of the budget.
func (s *searcher) forcingDeadline() time.Time {
	if s.deadline.IsZero() {
		return time.Time{}
	}
	remaining := time.Until(s.deadline)
	if remaining <= 0 {
		return s.deadline
	}
	return time.Now().Add(remaining / forcingBudgetDivisor)
}

func expired(deadline time.Time) bool {
	return !deadline.IsZero() && time.Now().After(deadline)
}

func (s *searcher) safetyDepth() int {
	depth := s.opts.SafetyDepth
	if depth <= 0 {
		depth = defaultSafety
		if s.opts.Precise {
			depth = defaultSafetyPre
		}
	}
	return clamp(depth, minSafetyDepth, maxSafetyDepth)
}

func (s *searcher) vcfAttackMoves(attacker Player) []Candidate {
	b := s.board
	var wins, fours, threes []Candidate
	for y := 0; y < b.size; y++ {
		for x := 0; x < b.size; x++ {
			if b.cells[y*b.size+x] != CellEmpty {
				continue
			}
			switch {
			case isFiveAt(b, x, y, attacker):
				wins = append(wins, Candidate{X: x, Y: y, Score: WinScore, Reason: "vcf_win"})
			case createsFour(b, x, y, attacker):
				fours = append(fours, Candidate{X: x, Y: y, Score: float64(ThreatLiveFour.Score()), Reason: "vcf_four"})
			case createsOpenThree(b, x, y, attacker):
				threes = append(threes, Candidate{X: x, Y: y, Score: float64(ThreatLiveThree.Score()), Reason: "vcf_three"})
			}
		}
	}
	out := append(wins, fours...)
	return append(out, threes...)
}

// vcfDefenseMoves lists every cell the defender must consider: cells that would
// let the attacker win or make a four.
func (s *searcher) vcfDefenseMoves(attacker Player) []Move {
	b := s.board
	var blocks []Move
	for y := 0; y < b.size; y++ {
		for x := 0; x < b.size; x++ {
			if b.cells[y*b.size+x] != CellEmpty {
				continue
			}
			if isFiveAt(b, x, y, attacker) || createsFour(b, x, y, attacker) {
				blocks = append(blocks, Move{X: x, Y: y})
			}
		}
	}
	return blocks
}

// runVCF searches for a continuous forcing win for attacker and returns its first
// move, or nil.
func (s *searcher) runVCF(attacker Player) *Candidate {
	deadline := s.forcingDeadline()
	first := s.vcfSearch(attacker, s.safetyDepth(), nil, s.hash, deadline)
	if first == nil {
		return nil
	}
	out := *first
	if out.Reason == "" {
		out.Reason = ReasonVCFStart
	}
	return &out
}

func (s *searcher) vcfSearch(attacker Player, depth int, first *Candidate, hash uint32, deadline time.Time) *Candidate {
	if expired(deadline) {
		s.stats.ForcingAborts++
		return nil
	}
	if depth <= 0 {
		return nil
	}
	key := vcfKey{hash: hash, attacker: attacker, depth: depth}
	if _, failed := s.vcfFails[key]; failed {
		return nil
	}
	s.stats.VCFNodes++
	defender := attacker.Other()
	timedOut := false

	for _, move := range s.vcfAttackMoves(attacker) {
		idx, next := s.place(move.Move(), attacker, hash)
		start := first
		if start == nil {
			start = candidateAt(move.Move(), move.Score, ReasonVCFStart)
		}
		if isFiveAt(s.board, move.X, move.Y, attacker) {
			s.unplace(idx)
			return start
		}
		blocks := s.vcfDefenseMoves(attacker)
		if len(blocks) == 0 {
			s.unplace(idx)
			return start
		}
		holds := true
		for _, block := range blocks {
			bIdx, bHash := s.place(block, defender, next)
			res := s.vcfSearch(attacker, depth-1, start, bHash, deadline)
			s.unplace(bIdx)
			if res == nil {
				holds = false
				break
			}
		}
		s.unplace(idx)
		if holds {
			return start
		}
		if expired(deadline) {
			timedOut = true
			break
		}
	}
	if !timedOut {
		s.vcfFails[key] = struct{}{}
	}
	return nil
}

func isVCTMove(reason string) bool {
	return strings.Contains(reason, "live_three") || strings.Contains(reason, "four") || strings.Contains(reason, "win")
}

func isForcedReply(reason string) bool {
	for _, tag := range []string{"win", "block", "must", "fork", "stop"} {
		if strings.Contains(reason, tag) {
			return true
		}
	}
	return false
}

// runVCT looks for a win through threes and fours on hard difficulty. The defender
// answers with its forced replies only; a threat with no forced reply is not a VCT.
func (s *searcher) runVCT(attacker Player) *Candidate {
	deadline := s.forcingDeadline()
	var start *Candidate
	if !s.vctSearch(attacker, vctDepth, s.hash, deadline, &start) || start == nil {
		return nil
	}
	return start
}

func (s *searcher) vctSearch(attacker Player, depth int, hash uint32, deadline time.Time, start **Candidate) bool {
	if expired(deadline) {
		s.stats.ForcingAborts++
		return false
	}
	if depth <= 0 {
		return false
	}
	s.stats.VCTNodes++
	defender := attacker.Other()
	moves, _ := generateCandidates(s.board, attacker, GenerateOptions{Difficulty: DifficultyHard, Limit: vctCandidates})
	for _, move := range moves {
		if !isVCTMove(move.Reason) || s.board.At(move.X, move.Y) != CellEmpty {
			continue
		}
		idx, next := s.place(move.Move(), attacker, hash)
		success := isFiveAt(s.board, move.X, move.Y, attacker) ||
			s.vctDefends(attacker, defender, depth, next, deadline)
		s.unplace(idx)
		if success {
			if *start == nil {
				*start = candidateAt(move.Move(), move.Score, ReasonVCTTry)
			}
			return true
		}
	}
	return false
}

// vctDefends reports whether every forced defender reply still loses.
func (s *searcher) vctDefends(attacker, defender Player, depth int, hash uint32, deadline time.Time) bool {
	replies, _ := generateCandidates(s.board, defender, GenerateOptions{Difficulty: DifficultyHard, Limit: vctCandidates})
	tried := 0
	for _, reply := range replies {
		if tried >= vctReplies {
			break
		}
		if !isForcedReply(reply.Reason) {
			continue
		}
		tried++
		idx, next := s.place(reply.Move(), defender, hash)
		lost := false
		if !isFiveAt(s.board, reply.X, reply.Y, defender) {
			var ignored *Candidate
			lost = s.vctSearch(attacker, depth-1, next, deadline, &ignored)
		}
		s.unplace(idx)
		if !lost {
			return false
		}
	}
	return tried > 0
}
