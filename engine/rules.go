package engine

import "fmt"

const winLength = 5

// CheckWin reports whether the stone of player at (x,y) completes a run of five or
// more in any direction. The returned line is the full contiguous run, ordered from
// the negative end to the positive end, and may be longer than five.
func CheckWin(b Board, x, y int, player Player) (bool, []Move) {
	if !b.InBounds(x, y) {
		return false, nil
	}
	target := player.Cell()
	for _, dir := range directions {
		dx, dy := dir[0], dir[1]
		back := countDirection(b, x, y, -dx, -dy, target)
		forward := countDirection(b, x, y, dx, dy, target)
		if back+forward+1 < winLength {
			continue
		}
		line := make([]Move, 0, back+forward+1)
		for step := back; step >= 1; step-- {
			line = append(line, Move{X: x - dx*step, Y: y - dy*step})
		}
		line = append(line, Move{X: x, Y: y})
		for step := 1; step <= forward; step++ {
			line = append(line, Move{X: x + dx*step, Y: y + dy*step})
		}
		return true, line
	}
	return false, nil
}

// countDirection counts consecutive target stones starting one step away from (x,y).
func countDirection(b Board, x, y, dx, dy int, target Cell) int {
	count := 0
	cx, cy := x+dx, y+dy
	for b.InBounds(cx, cy) && b.cells[cy*b.size+cx] == target {
		count++
		cx += dx
		cy += dy
	}
	return count
}

// isFiveAt reports whether player owning (x,y) would form a run of five or more.
// The cell itself is not inspected, so it works both before and after placement.
func isFiveAt(b Board, x, y int, player Player) bool {
	target := player.Cell()
	for _, dir := range directions {
		count := 1 + countDirection(b, x, y, dir[0], dir[1], target) + countDirection(b, x, y, -dir[0], -dir[1], target)
		if count >= winLength {
			return true
		}
	}
	return false
}

// runShape measures the run through (x,y) for player along one axis and how many
// of its two ends are empty cells.
func runShape(b Board, x, y, dx, dy int, player Player) (total int, opens int) {
	target := player.Cell()
	left := countDirection(b, x, y, -dx, -dy, target)
	right := countDirection(b, x, y, dx, dy, target)
	if c, ok := b.cellOr(x-dx*(left+1), y-dy*(left+1)); ok && c == CellEmpty {
		opens++
	}
	if c, ok := b.cellOr(x+dx*(right+1), y+dy*(right+1)); ok && c == CellEmpty {
		opens++
	}
	return left + right + 1, opens
}

// createsFour reports whether placing player at (x,y) makes a contiguous four with
// at least one open end.
func createsFour(b Board, x, y int, player Player) bool {
	for _, dir := range directions {
		total, opens := runShape(b, x, y, dir[0], dir[1], player)
		if total == 4 && opens >= 1 {
			return true
		}
	}
	return false
}

// createsOpenThree reports whether placing player at (x,y) makes a contiguous three
// with both ends open.
func createsOpenThree(b Board, x, y int, player Player) bool {
	for _, dir := range directions {
		total, opens := runShape(b, x, y, dir[0], dir[1], player)
		if total == 3 && opens == 2 {
			return true
		}
	}
	return false
}

// BoardFromMoves replays an alternating move list starting with first. It returns the
// resulting board and the player to move next.
func BoardFromMoves(boardSize int, first Player, moves []Move) (Board, Player, error) {
	if boardSize <= 0 {
		return Board{}, 0, fmt.Errorf("%w: size %d", ErrInvalidBoard, boardSize)
	}
	if !first.Valid() {
		return Board{}, 0, fmt.Errorf("%w: %d", ErrInvalidPlayer, first)
	}
	b := NewBoard(boardSize)
	toMove := first
	for i, m := range moves {
		if !m.IsValid(boardSize) {
			return Board{}, 0, fmt.Errorf("%w: move %d %s out of bounds", ErrInvalidMove, i, m)
		}
		if b.At(m.X, m.Y) != CellEmpty {
			return Board{}, 0, fmt.Errorf("%w: move %d %s occupied", ErrInvalidMove, i, m)
		}
		b.Set(m.X, m.Y, toMove.Cell())
		if won, _ := CheckWin(b, m.X, m.Y, toMove); won && i != len(moves)-1 {
			return Board{}, 0, fmt.Errorf("%w: move %d %s played after the game was won", ErrInvalidMove, i+1, moves[i+1])
		}
		toMove = toMove.Other()
	}
	return b, toMove, nil
}

// Place puts player's stone on an empty in-bounds cell and reports a win.
func Place(b Board, m Move, player Player) (bool, []Move, error) {
	if !player.Valid() {
		return false, nil, fmt.Errorf("%w: %d", ErrInvalidPlayer, player)
	}
	if !m.IsValid(b.Size()) {
		return false, nil, fmt.Errorf("%w: %s out of bounds", ErrInvalidMove, m)
	}
	if b.At(m.X, m.Y) != CellEmpty {
		return false, nil, fmt.Errorf("%w: %s occupied", ErrInvalidMove, m)
	}
	b.Set(m.X, m.Y, player.Cell())
	won, line := CheckWin(b, m.X, m.Y, player)
	return won, line, nil
}
