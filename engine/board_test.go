package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func boardWith(t *testing.T, size int, black, white []Move) Board {
	t.Helper()
	b := NewBoard(size)
	for _, m := range black {
		require.True(t, b.IsEmpty(m.X, m.Y), "black stone %s overlaps", m)
		b.Set(m.X, m.Y, CellBlack)
	}
	for _, m := range white {
		require.True(t, b.IsEmpty(m.X, m.Y), "white stone %s overlaps", m)
		b.Set(m.X, m.Y, CellWhite)
	}
	return b
}

func row(y int, xs ...int) []Move {
	out := make([]Move, 0, len(xs))
	for _, x := range xs {
		out = append(out, Move{X: x, Y: y})
	}
	return out
}

func column(x int, ys ...int) []Move {
	out := make([]Move, 0, len(ys))
	for _, y := range ys {
		out = append(out, Move{X: x, Y: y})
	}
	return out
}

func TestBoardFromCellsRejectsBadInput(t *testing.T) {
	_, err := BoardFromCells(make([]int, 10), 15)
	require.True(t, errors.Is(err, ErrInvalidBoard))

	cells := make([]int, 15*15)
	cells[17] = 3
	_, err = BoardFromCells(cells, 15)
	require.ErrorIs(t, err, ErrInvalidBoard)

	cells[17] = -1
	_, err = BoardFromCells(cells, 15)
	require.ErrorIs(t, err, ErrInvalidBoard)
}

func TestBoardFromCellsRoundTrip(t *testing.T) {
	cells := make([]int, 19*19)
	cells[0] = 1
	cells[19*19-1] = 2
	cells[19*3+4] = 1

	b, err := BoardFromCells(cells, 19)
	require.NoError(t, err)
	require.Equal(t, 19, b.Size())
	require.Equal(t, CellBlack, b.At(0, 0))
	require.Equal(t, CellWhite, b.At(18, 18))
	require.Equal(t, CellBlack, b.At(4, 3))
	require.Equal(t, 3, b.StoneCount())
	require.Equal(t, cells, b.Ints())
}

func TestBoardCloneIsIndependent(t *testing.T) {
	b := NewBoard(15)
	b.Set(7, 7, CellBlack)
	clone := b.Clone()
	clone.Set(8, 8, CellWhite)

	require.Equal(t, CellEmpty, b.At(8, 8))
	require.False(t, b.Equal(clone))
	clone.Remove(8, 8)
	require.True(t, b.Equal(clone))
}

func TestBoardBoundsAndCoords(t *testing.T) {
	b := NewBoard(15)
	require.False(t, b.InBounds(-1, 0))
	require.False(t, b.InBounds(0, 15))
	require.False(t, b.IsEmpty(15, 15))
	require.True(t, b.IsEmpty(14, 14))

	idx := b.Index(3, 11)
	require.Equal(t, Move{X: 3, Y: 11}, b.Coord(idx))
	require.Equal(t, 225, b.CountEmpty())
	require.False(t, b.IsFull())
}

func TestPlayerHelpers(t *testing.T) {
	require.Equal(t, PlayerWhite, PlayerBlack.Other())
	require.Equal(t, PlayerBlack, OtherPlayer(PlayerWhite))
	require.Equal(t, CellWhite, PlayerWhite.Cell())
	require.False(t, Player(0).Valid())
	require.False(t, Player(3).Valid())
	require.Equal(t, "black", PlayerBlack.String())
}
