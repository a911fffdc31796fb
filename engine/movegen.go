package engine

import (
	"sort"
)

const (
	ReasonOpening             = "opening"
	ReasonWinNow              = "win_now"
	ReasonBlockFive           = "block_five"
	ReasonCreateLiveFour      = "create_live_four"
	ReasonCreateRushFour      = "create_rush_four"
	ReasonBlockLiveFour       = "block_live_four"
	ReasonBlockRushFour       = "block_rush_four"
	ReasonLiveThree           = "live_three"
	ReasonJumpThree           = "jump_three"
	ReasonBlockLiveThree      = "block_live_three"
	ReasonBlockJumpThree      = "block_jump_three"
	ReasonFourThree           = "four_three"
	ReasonBlockFourThree      = "block_four_three"
	ReasonMustBlock           = "must_block"
	ReasonBlockLiveFourSetup  = "block_live_four_setup"
	ReasonBlockFourSetup      = "block_four_setup"
	ReasonBlockLiveThreeEnd   = "block_live_three_end"
	ReasonBlockLiveThreeSetup = "block_live_three_setup"
	ReasonForkBlock           = "fork_block"
	ReasonForkPivotBlock      = "fork_pivot_block"
	ReasonBlockDoubleThree    = "block_double_live_three_pivot"
	ReasonSetupCombo          = "setup_combo"
	ReasonBlockSetupCombo     = "block_setup_combo"
	ReasonBlockMultiLine      = "block_multi_line"
)

const (
	minCandidates     = 7
	multiLineWeight   = 45
	multiLineTactical = 8
)

// Candidate is a proposed move with its heuristic score and routing reason.
type Candidate struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
}

func (c Candidate) Move() Move {
	return Move{X: c.X, Y: c.Y}
}

type GenerateOptions struct {
	Difficulty Difficulty
	// Limit overrides the difficulty based cap when positive.
	Limit   int
	Precise bool
}

func difficultyLimit(d Difficulty, precise bool) int {
	base := 16
	switch d {
	case DifficultyHard:
		base = 18
	case DifficultyNormal:
		base = 14
	case DifficultyEasy:
		base = 10
	}
	if precise {
		base += 8
	}
	return base
}

func reasonFromPattern(self, opp ThreatType) string {
	switch {
	case self == ThreatFive:
		return ReasonWinNow
	case opp == ThreatFive:
		return ReasonBlockFive
	case self == ThreatLiveFour:
		return ReasonCreateLiveFour
	case self == ThreatRushFour:
		return ReasonCreateRushFour
	case opp == ThreatLiveFour:
		return ReasonBlockLiveFour
	case opp == ThreatRushFour:
		return ReasonBlockRushFour
	case self == ThreatLiveThree:
		return ReasonLiveThree
	case self == ThreatSleepThree:
		return ReasonJumpThree
	case opp == ThreatLiveThree:
		return ReasonBlockLiveThree
	case opp == ThreatSleepThree:
		return ReasonBlockJumpThree
	}
	return ""
}

type cellMask []bool

func newCellMask(b Board, moves []Move) cellMask {
	mask := make(cellMask, b.Len())
	for _, m := range moves {
		mask[b.index(m.X, m.Y)] = true
	}
	return mask
}

// tacticalMap holds every cell set move routing consults for one position.
type tacticalMap struct {
	wins              cellMask
	blocks            cellMask
	mustBlocks        cellMask
	oppLiveFourStarts cellMask
	oppFourStarts     cellMask
	oppLiveThreeStart cellMask
	oppLiveThreeEnds  cellMask
	forkBlocks        cellMask
	forkPivots        cellMask
	doubleThrees      cellMask
	oppCombos         cellMask
	selfCombos        cellMask
	oppSetups         cellMask
	selfSetups        cellMask
	quiet             bool
}

func buildTacticalMap(b Board, player Player) tacticalMap {
	opp := player.Other()
	selfSetups := TwoStepThreatSetups(b, player)
	oppSetups := TwoStepThreatSetups(b, opp)
	oppCombos := ComboThreatPivots(b, opp)
	forks := ForkThreatMovesForOpponent(b, player)
	strong := strongThreatCount(b, player, selfSetups) + strongThreatCount(b, opp, oppSetups)
	return tacticalMap{
		wins:              newCellMask(b, ImmediateWins(b, player)),
		blocks:            newCellMask(b, ImmediateBlocks(b, player)),
		mustBlocks:        newCellMask(b, mustBlockCells(b, player, oppCombos, oppSetups)),
		oppLiveFourStarts: newCellMask(b, LiveFourCreationPoints(b, opp)),
		oppFourStarts:     newCellMask(b, FourCreationPoints(b, opp)),
		oppLiveThreeStart: newCellMask(b, LiveThreeCreationPoints(b, opp)),
		oppLiveThreeEnds:  newCellMask(b, LiveThreeOpenEnds(b, opp)),
		forkBlocks:        newCellMask(b, forks),
		forkPivots:        newCellMask(b, forks),
		doubleThrees:      newCellMask(b, DoubleLiveThreePivotsForOpponent(b, player)),
		oppCombos:         newCellMask(b, oppCombos),
		selfCombos:        newCellMask(b, ComboThreatPivots(b, player)),
		oppSetups:         newCellMask(b, oppSetups),
		selfSetups:        newCellMask(b, selfSetups),
		quiet:             strong == 0,
	}
}

// multiLineBlockScore rewards cells that sit on several lines of target's stones.
func multiLineBlockScore(b Board, x, y int, target Player) int {
	own := target.Cell()
	var scores [4]int
	for d, dir := range directions {
		score := 0
		for _, sign := range [2]int{1, -1} {
			for step := 1; step <= 4; step++ {
				cell, ok := b.cellOr(x+dir[0]*step*sign, y+dir[1]*step*sign)
				if !ok {
					break
				}
				if cell == own {
					score += 5 - step
					continue
				}
				if cell != CellEmpty {
					break
				}
			}
		}
		scores[d] = score
	}
	sort.Sort(sort.Reverse(sort.IntSlice(scores[:])))
	total := scores[0] + scores[1]
	if scores[0] >= 6 && scores[1] >= 6 {
		total += 4
	}
	return total
}

func openingCandidates(b Board) []Candidate {
	mid := b.size / 2
	out := make([]Candidate, 0, 9)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			x, y := mid+dx, mid+dy
			if !b.InBounds(x, y) {
				continue
			}
			out = append(out, Candidate{X: x, Y: y, Score: 0, Reason: ReasonOpening})
		}
	}
	return out
}

func sortCandidates(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		return c[i].Score > c[j].Score
	})
}

// GenerateCandidates proposes moves for player. Forced replies come first in
// priority order; quiet positions return the best tactical then positional moves.
func GenerateCandidates(b Board, player Player, opts GenerateOptions) []Candidate {
	candidates, _ := generateCandidates(b, player, opts)
	return candidates
}

// generateCandidates also returns the tactical map it routed with; the map is nil
// for the opening.
func generateCandidates(b Board, player Player, opts GenerateOptions) ([]Candidate, *tacticalMap) {
	stones := b.StoneCount()
	if stones == 0 {
		return openingCandidates(b), nil
	}
	opp := player.Other()
	tm := buildTacticalMap(b, player)
	openingThreshold := 10
	if b.size == 19 {
		openingThreshold = 14
	}
	useBlockBias := tm.quiet && stones <= openingThreshold

	var forced, tactical, positional []Candidate
	for y := 0; y < b.size; y++ {
		for x := 0; x < b.size; x++ {
			idx := b.index(x, y)
			if b.cells[idx] != CellEmpty || !hasNeighbor(b, x, y, nearDistance) {
				continue
			}
			self := EvaluatePoint(b, x, y, player)
			other := EvaluatePoint(b, x, y, opp)
			score := float64(self.Total) + float64(other.Total)*0.9 + float64(self.SecondBest)*0.3
			reason := reasonFromPattern(self.Best, other.Best)
			multiLine := 0
			if useBlockBias {
				multiLine = multiLineBlockScore(b, x, y, opp)
			}
			if multiLine > 0 {
				score += float64(multiLine * multiLineWeight)
				if reason == "" && multiLine >= multiLineTactical {
					reason = ReasonBlockMultiLine
				}
			}
			cand := Candidate{X: x, Y: y, Score: score, Reason: reason}
			force := func(score int, reason string) {
				forced = append(forced, Candidate{X: x, Y: y, Score: float64(score), Reason: reason})
			}

			selfFour := self.Best.isFour()
			oppFour := other.Best.isFour()
			switch {
			case tm.wins[idx] || self.Best == ThreatFive:
				force(ThreatFive.Score(), ReasonWinNow)
			case tm.blocks[idx] || other.Best == ThreatFive:
				force(ThreatFive.Score()-1, ReasonBlockFive)
			case selfFour:
				r := ReasonCreateRushFour
				if self.Best == ThreatLiveFour {
					r = ReasonCreateLiveFour
				}
				force(ThreatLiveFour.Score(), r)
			case oppFour:
				r := ReasonBlockRushFour
				if other.Best == ThreatLiveFour {
					r = ReasonBlockLiveFour
				}
				force(ThreatLiveFour.Score()-10, r)
			case tm.selfCombos[idx] || tm.oppCombos[idx]:
				s, r := ThreatLiveFour.Score()+ThreatLiveThree.Score(), ReasonBlockFourThree
				if tm.oppCombos[idx] {
					s -= 100
				}
				if tm.selfCombos[idx] {
					r = ReasonFourThree
				}
				force(s, r)
			case tm.mustBlocks[idx]:
				force(ThreatLiveFour.Score()-5, ReasonMustBlock)
			case tm.oppLiveFourStarts[idx]:
				force(ThreatLiveFour.Score()-6, ReasonBlockLiveFourSetup)
			case tm.oppFourStarts[idx]:
				force(ThreatRushFour.Score(), ReasonBlockFourSetup)
			case tm.oppLiveThreeEnds[idx]:
				force(ThreatLiveThree.Score(), ReasonBlockLiveThreeEnd)
			case tm.oppLiveThreeStart[idx]:
				force(ThreatLiveThree.Score(), ReasonBlockLiveThreeSetup)
			case tm.forkBlocks[idx]:
				force(ThreatLiveFour.Score()-8, ReasonForkBlock)
			case tm.forkPivots[idx]:
				force(ThreatLiveFour.Score()-9, ReasonForkPivotBlock)
			case tm.doubleThrees[idx]:
				force(ThreatLiveThree.Score()+100, ReasonBlockDoubleThree)
			case tm.selfSetups[idx]:
				tactical = append(tactical, Candidate{X: x, Y: y, Score: score + 700, Reason: ReasonSetupCombo})
			case tm.oppSetups[idx]:
				tactical = append(tactical, Candidate{X: x, Y: y, Score: score + 500, Reason: ReasonBlockSetupCombo})
			default:
				selfThree := self.Best == ThreatLiveThree || self.Best == ThreatSleepThree
				oppThree := other.Best == ThreatLiveThree || other.Best == ThreatSleepThree
				double := self.SecondBest >= ThreatSleepThree.Score()
				switch {
				case selfThree || oppThree || double:
					if double {
						cand.Score += 400
					}
					if cand.Reason == "" {
						switch {
						case double:
							cand.Reason = ReasonFourThree
						case selfThree:
							cand.Reason = ReasonLiveThree
						default:
							cand.Reason = ReasonBlockLiveThree
						}
					}
					tactical = append(tactical, cand)
				case multiLine >= multiLineTactical:
					cand.Score += 300
					if cand.Reason == "" {
						cand.Reason = ReasonBlockMultiLine
					}
					tactical = append(tactical, cand)
				default:
					positional = append(positional, cand)
				}
			}
		}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = difficultyLimit(opts.Difficulty, opts.Precise)
	}
	sortCandidates(tactical)
	sortCandidates(positional)

	if len(forced) > 0 {
		sortCandidates(forced)
		extraLimit := min(6, limit)
		if opts.Precise {
			extraLimit = min(10, limit)
		}
		used := make(map[Move]struct{}, len(forced)+extraLimit)
		for _, c := range forced {
			used[c.Move()] = struct{}{}
		}
		out := forced
		extras := 0
		for _, pool := range [][]Candidate{tactical, positional} {
			for _, c := range pool {
				if extras >= extraLimit {
					break
				}
				if _, ok := used[c.Move()]; ok {
					continue
				}
				used[c.Move()] = struct{}{}
				out = append(out, c)
				extras++
			}
		}
		return out, &tm
	}

	out := make([]Candidate, 0, max(limit, minCandidates))
	used := make(map[Move]struct{}, limit)
	for _, pool := range [][]Candidate{tactical, positional} {
		for _, c := range pool {
			if len(out) >= limit {
				break
			}
			used[c.Move()] = struct{}{}
			out = append(out, c)
		}
	}
	needed := max(limit, minCandidates)
	for _, c := range positional {
		if len(out) >= needed {
			break
		}
		if _, ok := used[c.Move()]; ok {
			continue
		}
		used[c.Move()] = struct{}{}
		out = append(out, c)
	}
	return out, &tm
}
