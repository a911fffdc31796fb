package engine

import (
	"fmt"
	"sort"
)

// ThreatType classifies a line shape. Larger values are more severe.
type ThreatType uint8

const (
	ThreatNone ThreatType = iota
	ThreatSleepTwo
	ThreatLiveTwo
	ThreatSleepThree
	ThreatLiveThree
	ThreatRushFour
	ThreatLiveFour
	ThreatFive
)

var threatScores = [...]int{
	ThreatNone:       0,
	ThreatSleepTwo:   80,
	ThreatLiveTwo:    200,
	ThreatSleepThree: 800,
	ThreatLiveThree:  2500,
	ThreatRushFour:   8000,
	ThreatLiveFour:   20000,
	ThreatFive:       100000,
}

var threatNames = [...]string{
	ThreatNone:       "NONE",
	ThreatSleepTwo:   "SLEEP_TWO",
	ThreatLiveTwo:    "LIVE_TWO",
	ThreatSleepThree: "SLEEP_THREE",
	ThreatLiveThree:  "LIVE_THREE",
	ThreatRushFour:   "RUSH_FOUR",
	ThreatLiveFour:   "LIVE_FOUR",
	ThreatFive:       "FIVE",
}

const (
	maxThreatsSelf = 3
	maxThreatsOpp  = 2
	nearDistance   = 2
	lineRadius     = 4
	windowLen      = 2*lineRadius + 1
)

func (t ThreatType) Score() int {
	if int(t) >= len(threatScores) {
		return 0
	}
	return threatScores[t]
}

func (t ThreatType) String() string {
	if int(t) >= len(threatNames) {
		return fmt.Sprintf("ThreatType(%d)", int(t))
	}
	return threatNames[t]
}

func (t ThreatType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ThreatType) UnmarshalText(text []byte) error {
	for i, name := range threatNames {
		if name == string(text) {
			*t = ThreatType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown threat type %q", string(text))
}

func (t ThreatType) isFour() bool {
	return t == ThreatLiveFour || t == ThreatRushFour
}

// classify maps a contiguous run length and its open-end count to a threat type.
func classify(total, openEnds int) ThreatType {
	switch {
	case total >= 5:
		return ThreatFive
	case total == 4 && openEnds == 2:
		return ThreatLiveFour
	case total == 4 && openEnds == 1:
		return ThreatRushFour
	case total == 3 && openEnds == 2:
		return ThreatLiveThree
	case total == 3 && openEnds == 1:
		return ThreatSleepThree
	case total == 2 && openEnds == 2:
		return ThreatLiveTwo
	case total == 2 && openEnds == 1:
		return ThreatSleepTwo
	}
	return ThreatNone
}

type Direction struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// ThreatRoute is a line threat found at an empty pivot cell.
type ThreatRoute struct {
	Player    Player     `json:"player"`
	Type      ThreatType `json:"type"`
	LineCells []Move     `json:"line_cells"`
	MustBlock []Move     `json:"must_block_cells"`
	Score     int        `json:"score"`
	Direction Direction  `json:"direction"`
}

// Broken shapes over a ±4 window: own=1, empty=0, off-board or opponent=2.
var gapPatterns = []struct {
	pattern string
	typ     ThreatType
}{
	{"0101110", ThreatRushFour},
	{"0111010", ThreatRushFour},
	{"0110110", ThreatRushFour},
	{"010110", ThreatLiveThree},
	{"011010", ThreatLiveThree},
}

type patternMatch struct {
	typ   ThreatType
	score int
	start int
	end   int
}

type lineThreat struct {
	typ      ThreatType
	score    int
	openEnds [2]Move
	numEnds  int
}

func (l lineThreat) ends() []Move {
	return append([]Move(nil), l.openEnds[:l.numEnds]...)
}

func (l *lineThreat) addEnd(m Move) {
	if l.numEnds < len(l.openEnds) {
		l.openEnds[l.numEnds] = m
		l.numEnds++
	}
}

func lineWindow(b Board, x, y int, player Player, dx, dy int) [windowLen]byte {
	var w [windowLen]byte
	own := player.Cell()
	for offset := -lineRadius; offset <= lineRadius; offset++ {
		i := offset + lineRadius
		cell, ok := b.cellOr(x+dx*offset, y+dy*offset)
		switch {
		case !ok:
			w[i] = '2'
		case offset == 0:
			w[i] = '1'
		case cell == CellEmpty:
			w[i] = '0'
		case cell == own:
			w[i] = '1'
		default:
			w[i] = '2'
		}
	}
	return w
}

func hasOwnStone(window [windowLen]byte) bool {
	for i, c := range window {
		if i != lineRadius && c == '1' {
			return true
		}
	}
	return false
}

func matchAt(tokens []byte, pattern string, start int) bool {
	if start < 0 || start+len(pattern) > len(tokens) {
		return false
	}
	for i := 0; i < len(pattern); i++ {
		if tokens[start+i] != pattern[i] {
			return false
		}
	}
	return true
}

// bestPatternMatch finds the highest scoring broken shape that covers center with
// an own stone.
func bestPatternMatch(line []byte, center int) (patternMatch, bool) {
	var best patternMatch
	found := false
	for _, def := range gapPatterns {
		for start := 0; start+len(def.pattern) <= len(line); start++ {
			if !matchAt(line, def.pattern, start) {
				continue
			}
			end := start + len(def.pattern) - 1
			if center < start || center > end || def.pattern[center-start] != '1' {
				continue
			}
			score := def.typ.Score()
			if !found || score > best.score {
				best = patternMatch{typ: def.typ, score: score, start: start, end: end}
				found = true
			}
		}
	}
	return best, found
}

// analyzeLine classifies the shape player would get along (dx,dy) by occupying (x,y).
// The contiguous classification and the broken-shape match compete; the higher score wins.
func analyzeLine(b Board, x, y int, player Player, dx, dy int) lineThreat {
	target := player.Cell()
	left := countDirection(b, x, y, -dx, -dy, target)
	right := countDirection(b, x, y, dx, dy, target)
	total := left + right + 1
	leftEnd := Move{X: x - dx*(left+1), Y: y - dy*(left+1)}
	rightEnd := Move{X: x + dx*(right+1), Y: y + dy*(right+1)}
	leftOpen := b.IsEmpty(leftEnd.X, leftEnd.Y)
	rightOpen := b.IsEmpty(rightEnd.X, rightEnd.Y)
	opens := 0
	if leftOpen {
		opens++
	}
	if rightOpen {
		opens++
	}

	result := lineThreat{typ: classify(total, opens)}
	result.score = result.typ.Score()
	if result.typ == ThreatLiveThree {
		if leftOpen {
			result.addEnd(leftEnd)
		}
		if rightOpen {
			result.addEnd(rightEnd)
		}
	}

	window := lineWindow(b, x, y, player, dx, dy)
	if total == 1 && !hasOwnStone(window) {
		return result
	}
	match, ok := bestPatternMatch(window[:], lineRadius)
	if ok && match.score > result.score {
		result = lineThreat{typ: match.typ, score: match.score}
		if match.typ == ThreatLiveThree {
			if window[match.start] == '0' {
				off := match.start - lineRadius
				result.addEnd(Move{X: x + dx*off, Y: y + dy*off})
			}
			if window[match.end] == '0' {
				off := match.end - lineRadius
				result.addEnd(Move{X: x + dx*off, Y: y + dy*off})
			}
		}
	}
	return result
}

// PatternEval summarizes the four directional shapes at one cell.
type PatternEval struct {
	Total      int
	Best       ThreatType
	BestScore  int
	SecondBest int
}

// EvaluatePoint scores the cell (x,y) for player across all four directions.
func EvaluatePoint(b Board, x, y int, player Player) PatternEval {
	var eval PatternEval
	for _, dir := range directions {
		info := analyzeLine(b, x, y, player, dir[0], dir[1])
		eval.Total += info.score
		if info.score > eval.BestScore {
			eval.SecondBest = eval.BestScore
			eval.Best = info.typ
			eval.BestScore = info.score
		} else if info.score > eval.SecondBest {
			eval.SecondBest = info.score
		}
	}
	return eval
}

// lineCells lists up to four cells before the pivot, the pivot, then cells after it
// until five cells are collected.
func lineCells(b Board, x, y, dx, dy int) []Move {
	cells := make([]Move, 0, 5)
	back := 0
	for step := 1; step <= 4; step++ {
		if !b.InBounds(x-dx*step, y-dy*step) {
			break
		}
		back = step
	}
	for step := back; step >= 1; step-- {
		cells = append(cells, Move{X: x - dx*step, Y: y - dy*step})
	}
	cells = append(cells, Move{X: x, Y: y})
	for step := 1; step <= 4 && len(cells) < 5; step++ {
		if !b.InBounds(x+dx*step, y+dy*step) {
			break
		}
		cells = append(cells, Move{X: x + dx*step, Y: y + dy*step})
	}
	return cells
}

func buildThreat(b Board, x, y int, player Player, dx, dy int) (ThreatRoute, bool) {
	if b.At(x, y) != CellEmpty {
		return ThreatRoute{}, false
	}
	info := analyzeLine(b, x, y, player, dx, dy)
	if info.typ == ThreatNone {
		return ThreatRoute{}, false
	}
	var mustBlock []Move
	switch info.typ {
	case ThreatFive, ThreatLiveFour, ThreatRushFour, ThreatSleepThree:
		mustBlock = []Move{{X: x, Y: y}}
	case ThreatLiveThree:
		mustBlock = info.ends()
	}
	return ThreatRoute{
		Player:    player,
		Type:      info.typ,
		LineCells: lineCells(b, x, y, dx, dy),
		MustBlock: mustBlock,
		Score:     info.score,
		Direction: Direction{DX: dx, DY: dy},
	}, true
}

func hasNeighbor(b Board, x, y, distance int) bool {
	for dy := -distance; dy <= distance; dy++ {
		for dx := -distance; dx <= distance; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if c, ok := b.cellOr(x+dx, y+dy); ok && c != CellEmpty {
				return true
			}
		}
	}
	return false
}

type scanBounds struct {
	minX, minY, maxX, maxY int
}

// activeBounds is the stone bounding box grown by nearDistance, or the whole board
// when it is empty.
func activeBounds(b Board) scanBounds {
	size := b.size
	bounds := scanBounds{minX: size - 1, minY: size - 1}
	hasStone := false
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if b.cells[y*size+x] == CellEmpty {
				continue
			}
			hasStone = true
			bounds.minX = min(bounds.minX, x)
			bounds.minY = min(bounds.minY, y)
			bounds.maxX = max(bounds.maxX, x)
			bounds.maxY = max(bounds.maxY, y)
		}
	}
	if !hasStone {
		return scanBounds{maxX: size - 1, maxY: size - 1}
	}
	return scanBounds{
		minX: max(0, bounds.minX-nearDistance),
		minY: max(0, bounds.minY-nearDistance),
		maxX: min(size-1, bounds.maxX+nearDistance),
		maxY: min(size-1, bounds.maxY+nearDistance),
	}
}

// forEachActiveCell visits empty cells inside the active bounds that have a stone
// within nearDistance, in row-major order.
func forEachActiveCell(b Board, visit func(x, y int)) {
	bounds := activeBounds(b)
	for y := bounds.minY; y <= bounds.maxY; y++ {
		for x := bounds.minX; x <= bounds.maxX; x++ {
			if b.cells[y*b.size+x] != CellEmpty {
				continue
			}
			if !hasNeighbor(b, x, y, nearDistance) {
				continue
			}
			visit(x, y)
		}
	}
}

type routeKey struct {
	typ    ThreatType
	dir    Direction
	startX int
	startY int
	n      int
}

// ScanThreatRoutes lists every threat player could create with one stone, deduplicated
// and sorted by descending score.
func ScanThreatRoutes(b Board, player Player) []ThreatRoute {
	routes := make([]ThreatRoute, 0, 32)
	seen := make(map[routeKey]struct{})
	forEachActiveCell(b, func(x, y int) {
		for _, dir := range directions {
			route, ok := buildThreat(b, x, y, player, dir[0], dir[1])
			if !ok {
				continue
			}
			key := routeKey{typ: route.Type, dir: route.Direction, startX: route.LineCells[0].X, startY: route.LineCells[0].Y, n: len(route.LineCells)}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			routes = append(routes, route)
		}
	})
	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].Score > routes[j].Score
	})
	return routes
}

// TopThreatRoutes returns at most limit routes of ScanThreatRoutes.
func TopThreatRoutes(b Board, player Player, limit int) []ThreatRoute {
	routes := ScanThreatRoutes(b, player)
	if limit >= 0 && len(routes) > limit {
		routes = routes[:limit]
	}
	return routes
}

// ThreatOverview returns the salient routes for the side to move and its opponent.
func ThreatOverview(b Board, player Player) (self []ThreatRoute, opp []ThreatRoute) {
	return TopThreatRoutes(b, player, maxThreatsSelf), TopThreatRoutes(b, player.Other(), maxThreatsOpp)
}

// pointShape aggregates the four directional classifications at one cell.
type pointShape struct {
	five        bool
	liveFour    bool
	strongFours int
	liveThrees  int
}

func shapeAt(b Board, x, y int, player Player) pointShape {
	var shape pointShape
	for _, dir := range directions {
		switch analyzeLine(b, x, y, player, dir[0], dir[1]).typ {
		case ThreatFive:
			shape.five = true
		case ThreatLiveFour:
			shape.liveFour = true
			shape.strongFours++
		case ThreatRushFour:
			shape.strongFours++
		case ThreatLiveThree:
			shape.liveThrees++
		}
	}
	return shape
}

func (s pointShape) isFork() bool {
	return s.five || s.strongFours >= 2
}

func (s pointShape) isCombo() bool {
	return (s.strongFours >= 1 && s.liveThrees >= 1) || s.liveThrees >= 2
}

func collectActive(b Board, match func(x, y int) bool) []Move {
	var out []Move
	forEachActiveCell(b, func(x, y int) {
		if match(x, y) {
			out = append(out, Move{X: x, Y: y})
		}
	})
	return out
}

// ImmediateWins lists cells that complete a run of five or more for player.
func ImmediateWins(b Board, player Player) []Move {
	return collectActive(b, func(x, y int) bool {
		return isFiveAt(b, x, y, player)
	})
}

// ImmediateBlocks lists cells where the opponent of player would complete five.
func ImmediateBlocks(b Board, player Player) []Move {
	return ImmediateWins(b, player.Other())
}

func LiveFourCreationPoints(b Board, player Player) []Move {
	return collectActive(b, func(x, y int) bool {
		for _, dir := range directions {
			if analyzeLine(b, x, y, player, dir[0], dir[1]).typ == ThreatLiveFour {
				return true
			}
		}
		return false
	})
}

func FourCreationPoints(b Board, player Player) []Move {
	return collectActive(b, func(x, y int) bool {
		for _, dir := range directions {
			if analyzeLine(b, x, y, player, dir[0], dir[1]).typ.isFour() {
				return true
			}
		}
		return false
	})
}

func LiveThreeCreationPoints(b Board, player Player) []Move {
	return collectActive(b, func(x, y int) bool {
		for _, dir := range directions {
			if analyzeLine(b, x, y, player, dir[0], dir[1]).typ == ThreatLiveThree {
				return true
			}
		}
		return false
	})
}

// LiveThreeOpenEnds lists both empty extension cells of every exact contiguous
// three of player whose ends are open.
func LiveThreeOpenEnds(b Board, player Player) []Move {
	var ends []Move
	seen := make(map[Move]struct{})
	add := func(m Move) {
		if _, ok := seen[m]; ok {
			return
		}
		seen[m] = struct{}{}
		ends = append(ends, m)
	}
	target := player.Cell()
	bounds := activeBounds(b)
	for y := bounds.minY; y <= bounds.maxY; y++ {
		for x := bounds.minX; x <= bounds.maxX; x++ {
			if b.At(x, y) != target {
				continue
			}
			for _, dir := range directions {
				dx, dy := dir[0], dir[1]
				count := 1 + countDirection(b, x, y, dx, dy, target)
				if count != 3 {
					continue
				}
				head := Move{X: x - dx, Y: y - dy}
				tail := Move{X: x + dx*count, Y: y + dy*count}
				if b.IsEmpty(head.X, head.Y) && b.IsEmpty(tail.X, tail.Y) {
					add(head)
					add(tail)
				}
			}
		}
	}
	return ends
}

// ForkThreatMovesForOpponent lists cells where the opponent of playerToMove would
// make two strong fours at once, or a five.
func ForkThreatMovesForOpponent(b Board, playerToMove Player) []Move {
	opp := playerToMove.Other()
	return collectActive(b, func(x, y int) bool {
		return shapeAt(b, x, y, opp).isFork()
	})
}

// ForkPivotsForOpponent is the pivot view of ForkThreatMovesForOpponent; both name
// the same cells.
func ForkPivotsForOpponent(b Board, playerToMove Player) []Move {
	return ForkThreatMovesForOpponent(b, playerToMove)
}

func DoubleLiveThreePivotsForOpponent(b Board, playerToMove Player) []Move {
	opp := playerToMove.Other()
	return collectActive(b, func(x, y int) bool {
		return shapeAt(b, x, y, opp).liveThrees >= 2
	})
}

// ComboThreatPivots lists cells giving player a four plus a live three, or two live threes.
func ComboThreatPivots(b Board, player Player) []Move {
	return collectActive(b, func(x, y int) bool {
		return shapeAt(b, x, y, player).isCombo()
	})
}

// threatCounts is the per-board tally used to detect setup moves.
type threatCounts struct {
	wins      int
	liveFours int
	combos    int
	forks     int
}

func countThreats(b Board, player Player) threatCounts {
	var counts threatCounts
	forEachActiveCell(b, func(x, y int) {
		shape := shapeAt(b, x, y, player)
		if shape.five {
			counts.wins++
		}
		if shape.liveFour {
			counts.liveFours++
		}
		if shape.isCombo() {
			counts.combos++
		}
		if shape.isFork() {
			counts.forks++
		}
	})
	return counts
}

func (c threatCounts) exceeds(base threatCounts) bool {
	return c.wins > base.wins || c.liveFours > base.liveFours || c.combos > base.combos || c.forks > base.forks
}

// TwoStepThreatSetups lists quiet cells that increase player's wins, live fours,
// combo pivots or fork cells. The board is modified transiently and restored.
func TwoStepThreatSetups(b Board, player Player) []Move {
	base := countThreats(b, player)
	cell := player.Cell()
	return collectActive(b, func(x, y int) bool {
		idx := b.index(x, y)
		b.cells[idx] = cell
		after := countThreats(b, player)
		b.cells[idx] = CellEmpty
		return after.exceeds(base)
	})
}

// CountImmediateStrongThreats is a cheap loudness gate: wins + live fours + forks +
// combos + setups for player.
func CountImmediateStrongThreats(b Board, player Player) int {
	return strongThreatCount(b, player, TwoStepThreatSetups(b, player))
}

func strongThreatCount(b Board, player Player, setups []Move) int {
	counts := countThreats(b, player)
	return counts.wins + counts.liveFours + counts.forks + counts.combos + len(setups)
}

// MustBlockCellsForOpponentThreat is the defensive cell set for player: must-block
// cells of opponent fives and fours, opponent combo pivots and opponent setups.
func MustBlockCellsForOpponentThreat(b Board, player Player) []Move {
	opp := player.Other()
	return mustBlockCells(b, player, ComboThreatPivots(b, opp), TwoStepThreatSetups(b, opp))
}

func mustBlockCells(b Board, player Player, oppCombos, oppSetups []Move) []Move {
	opp := player.Other()
	var cells []Move
	seen := make(map[Move]struct{})
	add := func(moves []Move) {
		for _, m := range moves {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			cells = append(cells, m)
		}
	}
	for _, route := range ScanThreatRoutes(b, opp) {
		if route.Type == ThreatFive || route.Type.isFour() {
			add(route.MustBlock)
		}
	}
	add(oppCombos)
	add(oppSetups)
	return cells
}
