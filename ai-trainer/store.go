package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/sanyuanya/gomoku-game/engine"
)

// moveRow is one played move. Board holds the position before the move, one byte per
// cell in row-major order (0 empty, 1 black, 2 white). Outcome is 1, 0 or -1 from the
// mover's side.
type moveRow struct {
	GameID     string  `parquet:"game_id,dict"`
	Ply        int32   `parquet:"ply"`
	Player     int32   `parquet:"player"`
	Difficulty string  `parquet:"difficulty,dict"`
	X          int32   `parquet:"x"`
	Y          int32   `parquet:"y"`
	Reason     string  `parquet:"reason,dict"`
	Score      float64 `parquet:"score"`
	Depth      int32   `parquet:"depth"`
	Nodes      int64   `parquet:"nodes"`
	DurationMs int64   `parquet:"duration_ms"`
	Size       int32   `parquet:"size"`
	Board      []byte  `parquet:"board"`
	Outcome    int32   `parquet:"outcome"`
}

func newMoveRow(gameID string, ply int, b engine.Board, player engine.Player, difficulty engine.Difficulty, m engine.Move, reason string, score float64, resp engine.Response) moveRow {
	cells := b.Ints()
	snapshot := make([]byte, len(cells))
	for i, v := range cells {
		snapshot[i] = byte(v)
	}
	return moveRow{
		GameID:     gameID,
		Ply:        int32(ply),
		Player:     int32(player),
		Difficulty: string(difficulty),
		X:          int32(m.X),
		Y:          int32(m.Y),
		Reason:     reason,
		Score:      score,
		Depth:      int32(resp.Depth),
		Nodes:      resp.Nodes,
		DurationMs: resp.DurationMs,
		Size:       int32(b.Size()),
		Board:      snapshot,
	}
}

func writeMoveRows(outPath string, rows []moveRow) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", "gomoku_move_v1"),
	); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}
