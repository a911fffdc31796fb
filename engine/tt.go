package engine

import "math"

type TTFlag uint8

const (
	TTExact TTFlag = iota
	TTLower
	TTUpper
)

const (
	ttVeryOldGenerations = 8
	defaultTTSize        = 1 << 15
	defaultTTBuckets     = 2
)

type TTEntry struct {
	Key         uint32
	Depth       int
	Score       int32
	Flag        TTFlag
	Best        Candidate
	HasBest     bool
	Hits        uint32
	GenWritten  uint32
	GenLastUsed uint32
	Valid       bool
}

// TranspositionTable is a bucketed table owned by a single search call.
// Keys are position hashes already salted with the side to move.
type TranspositionTable struct {
	mask    uint32
	buckets int
	entries []TTEntry
	gen     uint32
}

func NewTranspositionTable(size uint32, buckets int) *TranspositionTable {
	if buckets <= 0 {
		buckets = defaultTTBuckets
	}
	if size < 1 {
		size = 1
	}
	if size&(size-1) != 0 {
		size = nextPowerOfTwo(size)
	}
	return &TranspositionTable{
		mask:    size - 1,
		buckets: buckets,
		entries: make([]TTEntry, int(size)*buckets),
		gen:     1,
	}
}

// NextGeneration ages every stored entry; iterative deepening calls it per depth.
func (tt *TranspositionTable) NextGeneration() {
	tt.gen++
	if tt.gen == 0 {
		tt.gen = 1
	}
}

func (tt *TranspositionTable) Generation() uint32 {
	return tt.gen
}

func (tt *TranspositionTable) bucketIndex(key uint32) int {
	return int(key&tt.mask) * tt.buckets
}

func (tt *TranspositionTable) Probe(key uint32) (TTEntry, bool) {
	start := tt.bucketIndex(key)
	for i := 0; i < tt.buckets; i++ {
		entry := &tt.entries[start+i]
		if !entry.Valid || entry.Key != key {
			continue
		}
		entry.Hits++
		entry.GenLastUsed = tt.gen
		return *entry, true
	}
	return TTEntry{}, false
}

// Store writes an entry. A slot with the same key is replaced unless it holds a
// deeper result; otherwise an empty slot or the weakest replaceable one is used.
func (tt *TranspositionTable) Store(key uint32, depth int, value float64, flag TTFlag, best *Candidate) (replaced bool, overwrote bool) {
	entry := TTEntry{
		Key:         key,
		Depth:       depth,
		Score:       scoreToTT(value),
		Flag:        flag,
		GenWritten:  tt.gen,
		GenLastUsed: tt.gen,
		Valid:       true,
	}
	if best != nil {
		entry.Best = *best
		entry.HasBest = true
	}
	start := tt.bucketIndex(key)

	for i := 0; i < tt.buckets; i++ {
		idx := start + i
		if !tt.entries[idx].Valid || tt.entries[idx].Key != key {
			continue
		}
		if depth < tt.entries[idx].Depth {
			return false, false
		}
		tt.entries[idx] = entry
		return false, true
	}

	for i := 0; i < tt.buckets; i++ {
		idx := start + i
		if tt.entries[idx].Valid {
			continue
		}
		tt.entries[idx] = entry
		return false, false
	}

	victim := -1
	victimClass := 0
	victimAge := uint32(0)
	for i := 0; i < tt.buckets; i++ {
		idx := start + i
		class := replacementClass(tt.entries[idx], depth, flag, tt.gen)
		if class == 0 {
			continue
		}
		age := entryAge(tt.gen, tt.entries[idx])
		if victim == -1 || class < victimClass || (class == victimClass && age > victimAge) {
			victim = idx
			victimClass = class
			victimAge = age
		}
	}
	if victim == -1 {
		return false, false
	}
	tt.entries[victim] = entry
	return true, false
}

func (tt *TranspositionTable) Count() int {
	count := 0
	for i := range tt.entries {
		if tt.entries[i].Valid {
			count++
		}
	}
	return count
}

func (tt *TranspositionTable) Capacity() int {
	if tt == nil {
		return 0
	}
	return len(tt.entries)
}

func replacementClass(entry TTEntry, depth int, flag TTFlag, gen uint32) int {
	if depth > entry.Depth {
		return 1
	}
	if depth == entry.Depth && flag == TTExact && entry.Flag != TTExact {
		return 2
	}
	if entryAge(gen, entry) >= ttVeryOldGenerations {
		return 3
	}
	return 0
}

func entryAge(gen uint32, entry TTEntry) uint32 {
	last := entry.GenLastUsed
	if last == 0 {
		last = entry.GenWritten
	}
	return gen - last
}

func scoreToTT(value float64) int32 {
	if math.IsInf(value, 1) {
		return math.MaxInt32
	}
	if math.IsInf(value, -1) {
		return math.MinInt32
	}
	rounded := math.Round(value)
	if rounded > math.MaxInt32 {
		return math.MaxInt32
	}
	if rounded < math.MinInt32 {
		return math.MinInt32
	}
	return int32(rounded)
}

func nextPowerOfTwo(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
