package engine

// PVStep is one move of a principal variation.
type PVStep struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Player Player `json:"player"`
}

func (s *searcher) pvCap() int {
	if s.opts.Precise {
		return pvPlyCapPrecise
	}
	return pvPlyCap
}

// extractPV replays the table's best-move chain from first. It stops at a
// missing entry, an occupied cell or the ply cap, and restores the board.
func (s *searcher) extractPV(first Candidate) []PVStep {
	limit := s.pvCap()
	steps := make([]PVStep, 0, limit)
	placed := make([]int, 0, limit)
	defer func() {
		for i := len(placed) - 1; i >= 0; i-- {
			s.unplace(placed[i])
		}
	}()

	current := s.player
	hash := s.hash
	move := first.Move()
	for len(steps) < limit {
		if !s.board.IsEmpty(move.X, move.Y) {
			break
		}
		idx, next := s.place(move, current, hash)
		placed = append(placed, idx)
		steps = append(steps, PVStep{X: move.X, Y: move.Y, Player: current})
		if isFiveAt(s.board, move.X, move.Y, current) {
			break
		}
		hash = next
		current = current.Other()
		entry, ok := s.tt.Probe(sideKey(hash, current))
		if !ok || !entry.HasBest {
			break
		}
		move = entry.Best.Move()
	}
	return steps
}
