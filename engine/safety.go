package engine

const safetyAlternatives = 6

// losesToForcing reports whether playing m lets the opponent win at once or start
// a forcing win.
func (s *searcher) losesToForcing(m Move) bool {
	if !s.board.IsEmpty(m.X, m.Y) {
		return true
	}
	opp := s.player.Other()
	idx, next := s.place(m, s.player, s.hash)
	defer s.unplace(idx)
	if isFiveAt(s.board, m.X, m.Y, s.player) {
		return false
	}
	if len(ImmediateWins(s.board, opp)) > 0 {
		return true
	}
	saved := s.hash
	s.hash = next
	defer func() { s.hash = saved }()
	return s.runVCF(opp) != nil
}

// safetyFilter swaps an unsafe best move for the first safe alternative among the
// next ranked candidates. With no safe alternative the original move stands.
func (s *searcher) safetyFilter(best *Candidate) *Candidate {
	if best.Reason == ReasonWinNow || !s.losesToForcing(best.Move()) {
		return best
	}
	candidates, _ := s.generate(s.player, 0)
	tried := 0
	for _, c := range candidates {
		if tried >= safetyAlternatives {
			break
		}
		if c.Move() == best.Move() {
			continue
		}
		tried++
		if s.losesToForcing(c.Move()) {
			continue
		}
		safe := c
		safe.Reason = ReasonAvoidLoss
		s.stats.SafetySwaps++
		return &safe
	}
	return best
}
