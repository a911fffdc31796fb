package main

import (
	"fmt"
	"io"
	"strconv"

	svg "github.com/ajstarks/svgo"

	"github.com/sanyuanya/gomoku-game/engine"
)

const (
	minDiagramCell = 12
	maxDiagramCell = 96
)

type diagramOptions struct {
	CellPixels int
	Best       *engine.Candidate
	PV         []engine.PVStep
	Marks      []engine.Move
}

// renderDiagram draws the board as an SVG: grid, stones, must-block marks, the
// principal variation as numbered ghost stones and a ring on the chosen move.
func renderDiagram(w io.Writer, b engine.Board, opts diagramOptions) {
	cell := min(max(opts.CellPixels, minDiagramCell), maxDiagramCell)
	size := b.Size()
	margin := cell
	side := margin*2 + cell*(size-1)
	at := func(v int) int { return margin + v*cell }
	radius := cell * 9 / 20

	canvas := svg.New(w)
	canvas.Start(side, side)
	canvas.Title(fmt.Sprintf("gomoku %dx%d, %d stones", size, size, b.StoneCount()))
	canvas.Rect(0, 0, side, side, "fill:#dcb35c")

	canvas.Gid("grid")
	for i := 0; i < size; i++ {
		canvas.Line(at(0), at(i), at(size-1), at(i), "stroke:#3a2a10;stroke-width:1")
		canvas.Line(at(i), at(0), at(i), at(size-1), "stroke:#3a2a10;stroke-width:1")
		label := strconv.Itoa(i)
		canvas.Text(at(i), margin/2, label, labelStyle(cell))
		canvas.Text(margin/2, at(i)+cell/8, label, labelStyle(cell))
	}
	canvas.Gend()

	canvas.Gid("stones")
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			switch b.At(x, y) {
			case engine.CellBlack:
				canvas.Circle(at(x), at(y), radius, stoneStyle(engine.PlayerBlack, 1))
			case engine.CellWhite:
				canvas.Circle(at(x), at(y), radius, stoneStyle(engine.PlayerWhite, 1))
			}
		}
	}
	canvas.Gend()

	if len(opts.Marks) > 0 {
		canvas.Gid("must-block")
		half := cell / 5
		for _, m := range opts.Marks {
			if !m.IsValid(size) {
				continue
			}
			canvas.Rect(at(m.X)-half, at(m.Y)-half, half*2, half*2, "fill:none;stroke:#1f5fbf;stroke-width:2")
		}
		canvas.Gend()
	}

	if len(opts.PV) > 0 {
		canvas.Gid("pv")
		for i, step := range opts.PV {
			if !(engine.Move{X: step.X, Y: step.Y}).IsValid(size) {
				continue
			}
			canvas.Circle(at(step.X), at(step.Y), radius, stoneStyle(step.Player, 0.45))
			textColor := "#000"
			if step.Player == engine.PlayerBlack {
				textColor = "#fff"
			}
			canvas.Text(at(step.X), at(step.Y)+cell/6, strconv.Itoa(i+1),
				fmt.Sprintf("text-anchor:middle;font-family:sans-serif;font-size:%dpx;fill:%s", cell/2, textColor))
		}
		canvas.Gend()
	}

	if opts.Best != nil && opts.Best.Move().IsValid(size) {
		canvas.Circle(at(opts.Best.X), at(opts.Best.Y), radius+cell/10, "fill:none;stroke:#d0302a;stroke-width:3")
	}
	canvas.End()
}

func labelStyle(cell int) string {
	return fmt.Sprintf("text-anchor:middle;font-family:sans-serif;font-size:%dpx;fill:#3a2a10", max(cell/3, 6))
}

func stoneStyle(p engine.Player, opacity float64) string {
	if p == engine.PlayerBlack {
		return fmt.Sprintf("fill:#111;fill-opacity:%.2f", opacity)
	}
	return fmt.Sprintf("fill:#f7f7f2;fill-opacity:%.2f;stroke:#444;stroke-width:1", opacity)
}
