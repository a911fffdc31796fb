package engine

import (
	"math"
	"sort"
	"strings"
	"time"
)

const (
	WinScore = 1000000

	maxKillerPly     = 32
	killerPrimary    = 5000
	killerSecondary  = 3000
	quiescenceLimit  = 12
	topKCount        = 8
	pvPlyCap         = 4
	pvPlyCapPrecise  = 8
	defaultSafety    = 6
	defaultSafetyPre = 8
)

type SearchOptions struct {
	MaxDepth int
	// TimeBudget of zero means no deadline.
	TimeBudget  time.Duration
	Iterative   bool
	Difficulty  Difficulty
	Precise     bool
	SafetyDepth int
	// PV requests principal variation extraction; precise searches always extract it.
	PV      bool
	OnDepth func(DepthReport)
}

// DepthReport is emitted after every completed iterative deepening depth.
type DepthReport struct {
	Depth   int           `json:"depth"`
	Best    Candidate     `json:"best"`
	Score   float64       `json:"score"`
	Nodes   int64         `json:"nodes"`
	Elapsed time.Duration `json:"elapsed"`
}

type SearchResult struct {
	Best     *Candidate
	TopK     []Candidate
	PV       []PVStep
	Score    float64
	Depth    int
	Nodes    int64
	Duration time.Duration
	Aborted  bool
	Stats    SearchStats
}

type searcher struct {
	board    Board
	player   Player
	opts     SearchOptions
	zobrist  *ZobristTable
	tt       *TranspositionTable
	killers  [maxKillerPly][2]Move
	history  []int
	hash     uint32
	start    time.Time
	deadline time.Time
	aborted  bool
	stats    SearchStats
	vcfFails map[vcfKey]struct{}
}

func newSearcher(b Board, player Player, opts SearchOptions) *searcher {
	s := &searcher{
		board:    b.Clone(),
		player:   player,
		opts:     opts,
		zobrist:  GetZobrist(b.Size()),
		tt:       NewTranspositionTable(defaultTTSize, defaultTTBuckets),
		history:  make([]int, b.Len()),
		start:    time.Now(),
		vcfFails: make(map[vcfKey]struct{}),
	}
	for i := range s.killers {
		s.killers[i] = [2]Move{{X: -1, Y: -1}, {X: -1, Y: -1}}
	}
	s.hash = HashBoard(s.board, s.zobrist)
	if opts.TimeBudget > 0 {
		s.deadline = s.start.Add(opts.TimeBudget)
	}
	s.stats.Start = s.start
	return s
}

func (s *searcher) timeUp() bool {
	return !s.deadline.IsZero() && time.Now().After(s.deadline)
}

func (s *searcher) generate(current Player, limit int) ([]Candidate, *tacticalMap) {
	return generateCandidates(s.board, current, GenerateOptions{
		Difficulty: s.opts.Difficulty,
		Limit:      limit,
		Precise:    s.opts.Precise,
	})
}

// place and unplace keep the board and the hash in step.
func (s *searcher) place(m Move, p Player, hash uint32) (int, uint32) {
	idx := s.board.index(m.X, m.Y)
	s.board.cells[idx] = p.Cell()
	return idx, UpdateHash(hash, idx, p, s.zobrist)
}

func (s *searcher) unplace(idx int) {
	s.board.cells[idx] = CellEmpty
}

func tacticalBias(reason string) float64 {
	switch {
	case strings.Contains(reason, "win") || strings.Contains(reason, "block_five"):
		return 900000
	case strings.Contains(reason, "stop"):
		return 40000
	case strings.Contains(reason, "four"):
		return 20000
	case strings.Contains(reason, "three"):
		return 2000
	}
	return 0
}

func (s *searcher) orderMoves(moves []Candidate, ply int) []Candidate {
	type keyed struct {
		move Candidate
		key  float64
	}
	items := make([]keyed, len(moves))
	for i, m := range moves {
		key := m.Score + float64(s.history[s.board.index(m.X, m.Y)]) + tacticalBias(m.Reason)
		if ply < maxKillerPly {
			switch m.Move() {
			case s.killers[ply][0]:
				key += killerPrimary
			case s.killers[ply][1]:
				key += killerSecondary
			}
		}
		items[i] = keyed{move: m, key: key}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].key > items[j].key
	})
	out := make([]Candidate, len(items))
	for i, it := range items {
		out[i] = it.move
	}
	return out
}

func (s *searcher) recordKiller(ply int, m Move) {
	if ply < 0 || ply >= maxKillerPly {
		return
	}
	if s.killers[ply][0] == m {
		return
	}
	s.killers[ply][1] = s.killers[ply][0]
	s.killers[ply][0] = m
}

func (s *searcher) recordHistory(m Move, depth int) {
	s.history[s.board.index(m.X, m.Y)] += depth * depth
}

// hasLiveThreat reports whether p already owns an open three or a four.
func hasLiveThreat(b Board, p Player) bool {
	return len(LiveThreeOpenEnds(b, p)) > 0 || len(ImmediateWins(b, p)) > 0
}

func isQuiescenceMove(c Candidate, tm *tacticalMap, idx int) bool {
	if tm != nil && tm.mustBlocks[idx] {
		return true
	}
	r := c.Reason
	return strings.Contains(r, "win") || strings.Contains(r, "four") || strings.Contains(r, "three") ||
		strings.Contains(r, "block_five") || strings.Contains(r, "stop")
}

func (s *searcher) quiescence(current Player, alpha, beta float64, ply int, hash uint32, depth int) float64 {
	if s.timeUp() {
		s.aborted = true
		return EvaluateBoard(s.board, current)
	}
	s.stats.Nodes++
	s.stats.QNodes++
	standPat := EvaluateBoard(s.board, current)
	if standPat >= beta {
		return standPat
	}
	if standPat > alpha {
		alpha = standPat
	}
	if depth <= 0 {
		return standPat
	}

	moves, tm := s.generate(current, quiescenceLimit)
	forcing := moves[:0:0]
	for _, m := range moves {
		if isQuiescenceMove(m, tm, s.board.index(m.X, m.Y)) {
			forcing = append(forcing, m)
		}
	}
	for _, m := range s.orderMoves(forcing, ply) {
		idx, next := s.place(m.Move(), current, hash)
		var score float64
		if isFiveAt(s.board, m.X, m.Y, current) {
			score = float64(WinScore - ply)
		} else {
			score = -s.quiescence(current.Other(), -beta, -alpha, ply+1, next, depth-1)
		}
		s.unplace(idx)
		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}
	return alpha
}

func (s *searcher) quiescenceDepth(current Player, ply int) int {
	depth := 4 - min(3, ply)
	if s.opts.Precise && hasLiveThreat(s.board, current.Other()) {
		depth++
	}
	return depth
}

// applyTTEntry narrows the window from a stored entry and reports whether the
// entry settles the node.
func (s *searcher) applyTTEntry(entry TTEntry, depth int, alpha, beta *float64) bool {
	if entry.Depth < depth {
		return false
	}
	score := float64(entry.Score)
	switch entry.Flag {
	case TTExact:
		return true
	case TTLower:
		*alpha = math.Max(*alpha, score)
	case TTUpper:
		*beta = math.Min(*beta, score)
	}
	if *alpha >= *beta {
		s.stats.Cutoffs++
		return true
	}
	return false
}

func (s *searcher) negamax(current Player, depth int, alpha, beta float64, ply int, hash uint32) (float64, *Candidate) {
	if s.timeUp() {
		s.aborted = true
		return EvaluateBoard(s.board, current), nil
	}
	s.stats.Nodes++
	if depth == 0 {
		return s.quiescence(current, alpha, beta, ply, hash, s.quiescenceDepth(current, ply)), nil
	}

	key := sideKey(hash, current)
	s.stats.TTProbes++
	if entry, ok := s.tt.Probe(key); ok {
		s.stats.TTHits++
		if s.applyTTEntry(entry, depth, &alpha, &beta) {
			var best *Candidate
			if entry.HasBest {
				b := entry.Best
				best = &b
			}
			return float64(entry.Score), best
		}
	}

	candidates, _ := s.generate(current, 0)
	s.stats.CandidateCount += int64(len(candidates))
	if len(candidates) == 0 {
		return 0, nil
	}

	alphaOrig := alpha
	bestScore := math.Inf(-1)
	var best *Candidate
	for _, m := range s.orderMoves(candidates, ply) {
		idx, next := s.place(m.Move(), current, hash)
		var score float64
		if isFiveAt(s.board, m.X, m.Y, current) {
			score = float64(WinScore - ply)
		} else {
			score, _ = s.negamax(current.Other(), depth-1, -beta, -alpha, ply+1, next)
			score = -score
		}
		s.unplace(idx)

		if score > bestScore {
			bestScore = score
			mv := m
			best = &mv
		}
		alpha = math.Max(alpha, score)
		if alpha >= beta {
			s.stats.Cutoffs++
			if m.Reason != "" && !strings.Contains(m.Reason, "win") {
				s.recordKiller(ply, m.Move())
				s.recordHistory(m.Move(), depth)
			}
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
	replaced, overwrote := s.tt.Store(key, depth, bestScore, flag, best)
	s.stats.TTStores++
	if replaced {
		s.stats.TTReplacements++
	}
	if overwrote {
		s.stats.TTOverwrites++
	}
	return bestScore, best
}

// SearchBestMove runs the full pipeline for player on a private copy of b.
// The caller's board is never modified.
func SearchBestMove(b Board, player Player, opts SearchOptions) (SearchResult, error) {
	if err := validateSearchInput(b, player); err != nil {
		return SearchResult{}, err
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 1
	}
	s := newSearcher(b, player, opts)
	return s.run(), nil
}

func validateSearchInput(b Board, player Player) error {
	if !player.Valid() {
		return ErrInvalidPlayer
	}
	if b.size <= 0 || len(b.cells) != b.size*b.size {
		return ErrInvalidBoard
	}
	return nil
}

func (s *searcher) run() SearchResult {
	if s.board.CountEmpty() == 0 {
		return s.finish(nil, 0, 0)
	}

	if s.inEndgame() {
		if res, ok := s.solveEndgame(); ok {
			return s.finish(res.best, res.score, res.depth)
		}
	}

	var best *Candidate
	var bestScore float64
	depthReached := 0
	locked := false
	fromSearch := false

	if forced := s.preSearchForced(); forced.best != nil {
		best = forced.best
		bestScore = forced.best.Score
		depthReached = 1
		locked = forced.locked
	}

	if best == nil && s.opts.Difficulty == DifficultyHard {
		if vct := s.runVCT(s.player); vct != nil {
			best = vct
			bestScore = vct.Score
			depthReached = 2
		}
	}

	shouldOverride := func(c *Candidate) bool {
		if best == nil || fromSearch {
			return true
		}
		if locked {
			return false
		}
		return strings.Contains(c.Reason, "win") || strings.Contains(c.Reason, "vcf")
	}

	runDepth := func(depth int) {
		depthStart := time.Now()
		s.tt.NextGeneration()
		score, result := s.negamax(s.player, depth, math.Inf(-1), math.Inf(1), 0, s.hash)
		if s.aborted {
			return
		}
		s.stats.DepthDurations = append(s.stats.DepthDurations, time.Since(depthStart))
		s.stats.CompletedDepths = depth
		if result != nil && shouldOverride(result) {
			best = result
			bestScore = score
			depthReached = depth
			fromSearch = true
		}
		if s.opts.OnDepth != nil && best != nil {
			s.opts.OnDepth(DepthReport{
				Depth:   depth,
				Best:    *best,
				Score:   bestScore,
				Nodes:   s.stats.Nodes,
				Elapsed: time.Since(s.start),
			})
		}
	}

	if !locked {
		if s.opts.Iterative {
			for depth := 1; depth <= s.opts.MaxDepth; depth++ {
				runDepth(depth)
				if s.aborted {
					break
				}
			}
		} else {
			runDepth(s.opts.MaxDepth)
		}
	} else if s.opts.Precise && !s.timeUp() {
		// The forced move stands; this pass only fills the table for the PV.
		s.negamax(s.player, min(s.opts.MaxDepth, pvPlyCapPrecise), math.Inf(-1), math.Inf(1), 0, s.hash)
	}

	if best != nil && s.opts.Precise && s.opts.Difficulty == DifficultyHard {
		best = s.safetyFilter(best)
	}
	if depthReached == 0 {
		depthReached = s.opts.MaxDepth
	}
	return s.finish(best, bestScore, depthReached)
}

func (s *searcher) finish(best *Candidate, score float64, depth int) SearchResult {
	candidates, _ := s.generate(s.player, 0)
	if best == nil && len(candidates) > 0 {
		c := candidates[0]
		best = &c
		score = c.Score
	}
	if len(candidates) > topKCount {
		candidates = candidates[:topKCount]
	}
	topK := make([]Candidate, len(candidates))
	copy(topK, candidates)

	var pv []PVStep
	if best != nil && (s.opts.PV || s.opts.Precise) {
		pv = s.extractPV(*best)
	}
	s.stats.Elapsed = time.Since(s.start)
	return SearchResult{
		Best:     best,
		TopK:     topK,
		PV:       pv,
		Score:    score,
		Depth:    depth,
		Nodes:    s.stats.Nodes,
		Duration: s.stats.Elapsed,
		Aborted:  s.aborted,
		Stats:    s.stats,
	}
}
