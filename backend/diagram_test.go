package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sanyuanya/gomoku-game/engine"
)

func TestRenderDiagramClampsCellSize(t *testing.T) {
	var buf bytes.Buffer
	renderDiagram(&buf, engine.NewBoard(15), diagramOptions{CellPixels: 1})
	out := buf.String()
	require.Contains(t, out, `width="192"`)
	require.Equal(t, 15*2, strings.Count(out, "<line"))
	require.NotContains(t, out, `id="pv"`)
	require.NotContains(t, out, `id="must-block"`)
}

func TestRenderDiagramSkipsOffBoardMarks(t *testing.T) {
	b := engine.NewBoard(19)
	b.Set(9, 9, engine.CellBlack)
	b.Set(10, 9, engine.CellWhite)
	var buf bytes.Buffer
	renderDiagram(&buf, b, diagramOptions{
		CellPixels: 20,
		Marks:      []engine.Move{{X: 3, Y: 3}, {X: 40, Y: 2}},
		PV:         []engine.PVStep{{X: 11, Y: 9, Player: engine.PlayerBlack}, {X: -1, Y: 0, Player: engine.PlayerWhite}},
		Best:       &engine.Candidate{X: 11, Y: 9},
	})
	out := buf.String()
	require.Equal(t, 2, strings.Count(out, "fill-opacity:1.00"))
	require.Equal(t, 1, strings.Count(out, "fill-opacity:0.45"))
	require.Equal(t, 1, strings.Count(out, "stroke:#1f5fbf"))
	require.Contains(t, out, "stroke:#d0302a")
}
