package engine

import "testing"

func TestIncrementalHashMatchesFullHash(t *testing.T) {
	z := GetZobrist(15)
	b := NewBoard(15)
	hash := HashBoard(b, z)
	if hash != 0 {
		t.Fatalf("expected empty board hash 0, got %d", hash)
	}

	moves := []Move{{X: 7, Y: 7}, {X: 8, Y: 8}, {X: 6, Y: 7}, {X: 0, Y: 14}}
	player := PlayerBlack
	for _, m := range moves {
		b.Set(m.X, m.Y, player.Cell())
		hash = UpdateHash(hash, b.Index(m.X, m.Y), player, z)
		if full := HashBoard(b, z); full != hash {
			t.Fatalf("hash mismatch after %s: incremental %d full %d", m, hash, full)
		}
		player = player.Other()
	}

	last := moves[len(moves)-1]
	b.Remove(last.X, last.Y)
	hash = UpdateHash(hash, b.Index(last.X, last.Y), PlayerWhite, z)
	if full := HashBoard(b, z); full != hash {
		t.Fatalf("hash mismatch after removal: incremental %d full %d", hash, full)
	}
}

func TestZobristTablesAreCachedPerSize(t *testing.T) {
	if GetZobrist(15) != GetZobrist(15) {
		t.Fatalf("expected the same table for repeated lookups")
	}
	if GetZobrist(19).Size() != 19 {
		t.Fatalf("expected a 19x19 table")
	}
	a := NewZobrist(15, 1)
	b := NewZobrist(15, 1)
	if a.key(10, PlayerBlack) != b.key(10, PlayerBlack) {
		t.Fatalf("expected deterministic tables for the same seed")
	}
	if a.key(10, PlayerBlack) == a.key(10, PlayerWhite) {
		t.Fatalf("expected distinct keys per player")
	}
}

func TestSideKeyDependsOnPlayer(t *testing.T) {
	if sideKey(12345, PlayerBlack) == sideKey(12345, PlayerWhite) {
		t.Fatalf("expected side to move to change the key")
	}
}
