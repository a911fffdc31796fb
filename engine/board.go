package engine

import (
	"errors"
	"fmt"
)

type Cell int8

const (
	CellEmpty Cell = iota
	CellBlack
	CellWhite
)

// Player is the owner of a stone. Its numeric value matches the Cell it occupies.
type Player int8

const (
	PlayerBlack Player = 1
	PlayerWhite Player = 2
)

var (
	ErrInvalidBoard      = errors.New("invalid board")
	ErrInvalidMove       = errors.New("invalid move")
	ErrInvalidPlayer     = errors.New("invalid player")
	ErrUnsupportedSize   = errors.New("unsupported board size")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
)

// SupportedSizes lists the board side lengths a request may use.
var SupportedSizes = []int{15, 19}

var directions = [4][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}

type Move struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (m Move) IsValid(boardSize int) bool {
	return m.X >= 0 && m.Y >= 0 && m.X < boardSize && m.Y < boardSize
}

func (m Move) Equals(other Move) bool {
	return m.X == other.X && m.Y == other.Y
}

func (m Move) String() string {
	return fmt.Sprintf("(%d,%d)", m.X, m.Y)
}

func (p Player) Other() Player {
	if p == PlayerBlack {
		return PlayerWhite
	}
	return PlayerBlack
}

func (p Player) Cell() Cell {
	return Cell(p)
}

func (p Player) Valid() bool {
	return p == PlayerBlack || p == PlayerWhite
}

func (p Player) String() string {
	switch p {
	case PlayerBlack:
		return "black"
	case PlayerWhite:
		return "white"
	default:
		return fmt.Sprintf("player(%d)", int(p))
	}
}

// OtherPlayer toggles between the two players.
func OtherPlayer(p Player) Player {
	return p.Other()
}

func (c Cell) String() string {
	switch c {
	case CellBlack:
		return "Black"
	case CellWhite:
		return "White"
	default:
		return "Empty"
	}
}

// Board is a square grid stored as a flat slice, index = y*size + x.
// Copying a Board value shares the cells; use Clone for an independent copy.
type Board struct {
	size  int
	cells []Cell
}

func NewBoard(boardSize int) Board {
	return Board{size: boardSize, cells: make([]Cell, boardSize*boardSize)}
}

// BoardFromCells builds a board from a flat sequence of 0/1/2 values.
func BoardFromCells(values []int, boardSize int) (Board, error) {
	if boardSize <= 0 {
		return Board{}, fmt.Errorf("%w: size %d", ErrInvalidBoard, boardSize)
	}
	if len(values) != boardSize*boardSize {
		return Board{}, fmt.Errorf("%w: %d cells for size %d", ErrInvalidBoard, len(values), boardSize)
	}
	b := NewBoard(boardSize)
	for i, v := range values {
		if v < 0 || v > 2 {
			return Board{}, fmt.Errorf("%w: cell %d has value %d", ErrInvalidBoard, i, v)
		}
		b.cells[i] = Cell(v)
	}
	return b, nil
}

func IsSupportedSize(boardSize int) bool {
	for _, s := range SupportedSizes {
		if s == boardSize {
			return true
		}
	}
	return false
}

func (b Board) At(x, y int) Cell {
	return b.cells[b.index(x, y)]
}

func (b Board) Set(x, y int, value Cell) {
	b.cells[b.index(x, y)] = value
}

func (b Board) Remove(x, y int) {
	b.cells[b.index(x, y)] = CellEmpty
}

func (b Board) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.size && y < b.size
}

func (b Board) IsEmpty(x, y int) bool {
	return b.InBounds(x, y) && b.At(x, y) == CellEmpty
}

// cellOr returns the cell at (x,y) or ok=false when off the board.
func (b Board) cellOr(x, y int) (Cell, bool) {
	if !b.InBounds(x, y) {
		return CellEmpty, false
	}
	return b.cells[y*b.size+x], true
}

func (b Board) CountEmpty() int {
	count := 0
	for _, cell := range b.cells {
		if cell == CellEmpty {
			count++
		}
	}
	return count
}

func (b Board) StoneCount() int {
	return len(b.cells) - b.CountEmpty()
}

func (b Board) IsFull() bool {
	for _, cell := range b.cells {
		if cell == CellEmpty {
			return false
		}
	}
	return true
}

func (b Board) Size() int {
	return b.size
}

func (b Board) Len() int {
	return len(b.cells)
}

func (b Board) Clone() Board {
	clone := Board{size: b.size}
	clone.cells = make([]Cell, len(b.cells))
	copy(clone.cells, b.cells)
	return clone
}

// Equal reports whether both boards have the same size and contents.
func (b Board) Equal(other Board) bool {
	if b.size != other.size || len(b.cells) != len(other.cells) {
		return false
	}
	for i := range b.cells {
		if b.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}

// Ints returns the board as a flat slice of 0/1/2 values.
func (b Board) Ints() []int {
	out := make([]int, len(b.cells))
	for i, c := range b.cells {
		out[i] = int(c)
	}
	return out
}

func (b Board) Index(x, y int) int {
	return b.index(x, y)
}

func (b Board) Coord(index int) Move {
	return Move{X: index % b.size, Y: index / b.size}
}

func (b Board) index(x, y int) int {
	return y*b.size + x
}

func (b Board) center() float64 {
	return float64(b.size-1) / 2
}

func (b Board) centerDistance(m Move) float64 {
	c := b.center()
	return absFloat(float64(m.X)-c) + absFloat(float64(m.Y)-c)
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
