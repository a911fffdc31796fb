package engine

import "sync"

const zobristSeed uint32 = 0x9e3779b9

// turnSalt folds the side to move into transposition keys.
var turnSalt = [2]uint32{0x9e3779b9, 0x85ebca6b}

// ZobristTable holds two random values per cell, one for each player.
type ZobristTable struct {
	size int
	keys [][2]uint32
}

type zobristStore struct {
	mu     sync.Mutex
	tables map[int]*ZobristTable
}

var zobristTables = &zobristStore{tables: make(map[int]*ZobristTable)}

// NewZobrist fills a table from an xorshift32 stream seeded with seed+size.
func NewZobrist(boardSize int, seed uint32) *ZobristTable {
	rng := xorshift32{state: seed + uint32(boardSize)}
	table := &ZobristTable{size: boardSize, keys: make([][2]uint32, boardSize*boardSize)}
	for i := range table.keys {
		table.keys[i][0] = rng.next()
		table.keys[i][1] = rng.next()
	}
	return table
}

// GetZobrist returns the default-seeded table for a board size, built once per size.
func GetZobrist(boardSize int) *ZobristTable {
	zobristTables.mu.Lock()
	defer zobristTables.mu.Unlock()
	if table, ok := zobristTables.tables[boardSize]; ok {
		return table
	}
	table := NewZobrist(boardSize, zobristSeed)
	zobristTables.tables[boardSize] = table
	return table
}

func (z *ZobristTable) Size() int {
	return z.size
}

func (z *ZobristTable) key(index int, player Player) uint32 {
	return z.keys[index][player-1]
}

// HashBoard XORs the entry of every occupied cell.
func HashBoard(b Board, z *ZobristTable) uint32 {
	var hash uint32
	for i, cell := range b.cells {
		switch cell {
		case CellBlack:
			hash ^= z.keys[i][0]
		case CellWhite:
			hash ^= z.keys[i][1]
		}
	}
	return hash
}

// UpdateHash toggles one stone in or out of hash.
func UpdateHash(hash uint32, index int, player Player, z *ZobristTable) uint32 {
	return hash ^ z.key(index, player)
}

func sideKey(hash uint32, player Player) uint32 {
	return hash ^ turnSalt[player-1]
}

type xorshift32 struct {
	state uint32
}

func (s *xorshift32) next() uint32 {
	x := s.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	s.state = x
	return x
}
