package main

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/sanyuanya/gomoku-game/engine"
)

const queuePollInterval = 150 * time.Millisecond

var (
	errQueueDisabled = errors.New("analysis queue disabled")
	errQueueFull     = errors.New("analysis queue full")
	errUnknownBoard  = errors.New("unknown board id")
)

type analysisTask struct {
	hash    uint64
	board   engine.Board
	player  engine.Player
	created time.Time
}

type analysisEntry struct {
	Hash                uint64
	Board               engine.Board
	Player              engine.Player
	Stones              int
	Created             time.Time
	Hits                int
	CurrentDepth        int
	TargetDepth         int
	Analyzing           bool
	AnalysisStartedAtMs int64
}

type analysisResult struct {
	ID           string             `json:"id"`
	Player       engine.Player      `json:"player"`
	BestMove     *engine.Candidate  `json:"best_move"`
	TopK         []engine.Candidate `json:"top_k"`
	PV           []engine.PVStep    `json:"pv,omitempty"`
	Depth        int                `json:"depth"`
	Nodes        int64              `json:"nodes"`
	DurationMs   int64              `json:"duration_ms"`
	Aborted      bool               `json:"aborted"`
	Hits         int                `json:"hits"`
	Error        string             `json:"error,omitempty"`
	FinishedAtMs int64              `json:"finished_at_ms"`
}

type enqueueStatus string

const (
	enqueueAdded enqueueStatus = "added"
	enqueueHit   enqueueStatus = "hit"
	enqueueDone  enqueueStatus = "done"
)

type computeFunc func(engine.Request) (engine.Response, error)

// analysisQueue runs deep searches on submitted positions in the background.
// Positions are keyed by zobrist hash so a repeated submission only raises its priority.
type analysisQueue struct {
	mu          sync.Mutex
	queue       []analysisTask
	entries     map[uint64]analysisEntry
	processing  map[uint64]bool
	results     map[uint64]analysisResult
	resultOrder []uint64
	hub         *Hub
	config      *ConfigStore
	compute     computeFunc
	wake        chan struct{}
	limitWarned bool
	emptyLogged bool
}

func newAnalysisQueue(config *ConfigStore, hub *Hub) *analysisQueue {
	return &analysisQueue{
		entries:    make(map[uint64]analysisEntry),
		processing: make(map[uint64]bool),
		results:    make(map[uint64]analysisResult),
		hub:        hub,
		config:     config,
		compute:    engine.ComputeMove,
		wake:       make(chan struct{}, 1),
	}
}

// analysisKey folds the board size and side to move into the position hash.
func analysisKey(b engine.Board, player engine.Player) uint64 {
	hash := engine.HashBoard(b, engine.GetZobrist(b.Size()))
	return uint64(hash)<<32 | uint64(b.Size())<<8 | uint64(player)
}

func hashToBoardID(hash uint64) string {
	return "0x" + strconv.FormatUint(hash, 16)
}

func parseBoardID(raw string) (uint64, error) {
	if raw == "" {
		return 0, errUnknownBoard
	}
	return strconv.ParseUint(raw, 0, 64)
}

func (q *analysisQueue) analysisRequest(b engine.Board, player engine.Player, cfg Config) engine.Request {
	return engine.Request{
		Board:          b.Ints(),
		Size:           b.Size(),
		Player:         player,
		Difficulty:     engine.DifficultyHard,
		TimeBudgetMs:   cfg.AnalysisBudgetMs,
		PrecisionMode:  true,
		PrecisionDepth: cfg.AnalysisDepth,
		SafetyDepth:    cfg.AnalysisSafety,
		PV:             true,
	}
}

// Enqueue submits a position. A position already waiting gets its hit count raised;
// a position with a stored result is answered from it.
func (q *analysisQueue) Enqueue(b engine.Board, player engine.Player) (analysisEntry, enqueueStatus, error) {
	cfg := q.config.Get()
	if !cfg.QueueEnabled {
		return analysisEntry{}, "", errQueueDisabled
	}
	hash := analysisKey(b, player)
	now := time.Now()

	q.mu.Lock()
	if result, ok := q.results[hash]; ok && !result.Aborted && result.Error == "" {
		result.Hits++
		q.results[hash] = result
		q.mu.Unlock()
		return analysisEntry{Hash: hash, Board: b.Clone(), Player: player, Stones: b.StoneCount(), Hits: result.Hits, CurrentDepth: result.Depth, TargetDepth: result.Depth}, enqueueDone, nil
	}
	if entry, ok := q.entries[hash]; ok {
		entry.Hits++
		q.entries[hash] = entry
		event := q.eventLocked("board_hit", hash)
		q.mu.Unlock()
		q.publish(event)
		return entry, enqueueHit, nil
	}
	if cfg.QueueLimit > 0 && len(q.queue) >= cfg.QueueLimit {
		warn := !q.limitWarned
		q.limitWarned = true
		q.mu.Unlock()
		if warn {
			log.Warn().Str("component", "ai:queue").Int("limit", cfg.QueueLimit).Msg("analysis queue full, rejecting boards")
		}
		return analysisEntry{}, "", errQueueFull
	}
	task := analysisTask{hash: hash, board: b.Clone(), player: player, created: now}
	entry := analysisEntry{
		Hash:        hash,
		Board:       task.board,
		Player:      player,
		Stones:      b.StoneCount(),
		Created:     now,
		Hits:        1,
		TargetDepth: q.analysisRequest(b, player, cfg).SearchOptions().MaxDepth,
	}
	q.queue = append(q.queue, task)
	q.entries[hash] = entry
	q.emptyLogged = false
	event := q.eventLocked("board_added", hash)
	q.mu.Unlock()

	log.Info().Str("component", "ai:queue").Str("id", hashToBoardID(hash)).Int("stones", entry.Stones).Int("target_depth", entry.TargetDepth).Msg("board enqueued")
	q.publish(event)
	q.notify()
	return entry, enqueueAdded, nil
}

func (q *analysisQueue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *analysisQueue) pickTaskForProcessing() (analysisTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	bestIdx := -1
	var bestEntry analysisEntry
	for i, task := range q.queue {
		if q.processing[task.hash] {
			continue
		}
		entry := q.entries[task.hash]
		if bestIdx == -1 || compareAnalysisPriority(entry, bestEntry) < 0 {
			bestIdx = i
			bestEntry = entry
		}
	}
	if bestIdx == -1 {
		return analysisTask{}, false
	}
	task := q.queue[bestIdx]
	q.processing[task.hash] = true
	return task, true
}

func (q *analysisQueue) markBoardStarted(hash uint64) {
	q.mu.Lock()
	entry, ok := q.entries[hash]
	if ok {
		entry.Analyzing = true
		entry.AnalysisStartedAtMs = time.Now().UnixMilli()
		q.entries[hash] = entry
	}
	event := q.eventLocked("board_started", hash)
	q.mu.Unlock()
	q.publish(event)
}

func (q *analysisQueue) markBoardDepth(hash uint64, report engine.DepthReport) {
	q.mu.Lock()
	entry, ok := q.entries[hash]
	if !ok || report.Depth <= entry.CurrentDepth {
		q.mu.Unlock()
		return
	}
	entry.CurrentDepth = report.Depth
	q.entries[hash] = entry
	event := q.eventLocked("depth_hit", hash)
	best := report.Best
	event.Best = &best
	event.Score = report.Score
	q.mu.Unlock()
	q.publish(event)
}

func (q *analysisQueue) finishTaskProcessing(hash uint64, result analysisResult) {
	cfg := q.config.Get()
	q.mu.Lock()
	delete(q.processing, hash)
	for i, task := range q.queue {
		if task.hash == hash {
			q.queue = append(q.queue[:i], q.queue[i+1:]...)
			break
		}
	}
	if entry, ok := q.entries[hash]; ok {
		result.Hits = entry.Hits
	}
	q.storeResultLocked(hash, result, cfg.QueueResults)
	event := q.eventLocked("board_done", hash)
	event.Result = &result
	if result.Error != "" {
		event.Event = "board_failed"
	}
	delete(q.entries, hash)
	event.TotalInQueue = len(q.entries)
	if len(q.queue) < cfg.QueueLimit {
		q.limitWarned = false
	}
	q.mu.Unlock()
	q.publish(event)
}

func (q *analysisQueue) storeResultLocked(hash uint64, result analysisResult, limit int) {
	if limit <= 0 {
		return
	}
	if _, ok := q.results[hash]; !ok {
		q.resultOrder = append(q.resultOrder, hash)
	}
	q.results[hash] = result
	for len(q.resultOrder) > limit {
		oldest := q.resultOrder[0]
		q.resultOrder = q.resultOrder[1:]
		delete(q.results, oldest)
	}
}

func (q *analysisQueue) logQueueEmptyIfNeeded() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queue) != 0 || q.emptyLogged {
		return
	}
	log.Debug().Str("component", "ai:queue").Msg("all queued boards analysed")
	q.emptyLogged = true
}

func (q *analysisQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

func (q *analysisQueue) Total() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *analysisQueue) Top(limit int) []analysisQueueEntryDTO {
	q.mu.Lock()
	defer q.mu.Unlock()
	if limit <= 0 {
		return []analysisQueueEntryDTO{}
	}
	items := lo.Values(q.entries)
	sortAnalysisQueue(items)
	if len(items) > limit {
		items = items[:limit]
	}
	return lo.Map(items, func(entry analysisEntry, _ int) analysisQueueEntryDTO {
		return analysisEntryToDTO(entry)
	})
}

// Lookup reports a queued entry or a stored result for the given id.
func (q *analysisQueue) Lookup(hash uint64) (*analysisQueueEntryDTO, *analysisResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if entry, ok := q.entries[hash]; ok {
		dto := analysisEntryToDTO(entry)
		return &dto, nil, nil
	}
	if result, ok := q.results[hash]; ok {
		return nil, &result, nil
	}
	return nil, nil, errUnknownBoard
}

func (q *analysisQueue) eventLocked(event string, hash uint64) analysisEvent {
	var eventEntry *analysisEventEntry
	if entry, ok := q.entries[hash]; ok {
		dto := analysisEntryToEventEntry(entry)
		eventEntry = &dto
	}
	return analysisEvent{
		Event:        event,
		Entry:        eventEntry,
		TotalInQueue: len(q.entries),
		UpdatedAt:    time.Now().UnixMilli(),
	}
}

func (q *analysisQueue) publish(event analysisEvent) {
	if q.hub == nil {
		return
	}
	q.hub.Publish(event)
}

// Run starts the workers and blocks until ctx is cancelled. A search already in
// progress is allowed to reach its time budget before its worker exits.
func (q *analysisQueue) Run(ctx context.Context, workers int) error {
	if workers <= 0 {
		workers = 1
	}
	log.Info().Str("component", "ai:queue").Int("workers", workers).Msg("starting analysis workers")
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return q.worker(ctx)
		})
	}
	return g.Wait()
}

func (q *analysisQueue) worker(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		task, ok := q.pickTaskForProcessing()
		if !ok {
			q.logQueueEmptyIfNeeded()
			select {
			case <-ctx.Done():
				return nil
			case <-q.wake:
			case <-time.After(queuePollInterval):
			}
			continue
		}
		q.processTask(task)
	}
}

func (q *analysisQueue) processTask(task analysisTask) {
	cfg := q.config.Get()
	q.markBoardStarted(task.hash)
	req := q.analysisRequest(task.board, task.player, cfg)
	req.OnDepth = func(report engine.DepthReport) {
		q.markBoardDepth(task.hash, report)
	}
	resp, err := q.compute(req)
	result := analysisResult{
		ID:           hashToBoardID(task.hash),
		Player:       task.player,
		FinishedAtMs: time.Now().UnixMilli(),
	}
	if err != nil {
		log.Error().Err(err).Str("component", "ai:queue").Str("id", result.ID).Msg("analysis failed")
		result.Error = err.Error()
		q.finishTaskProcessing(task.hash, result)
		return
	}
	if cfg.LogSearchStats {
		engine.LogSearchStats("ai:queue", resp.Stats)
	}
	result.BestMove = resp.BestMove
	result.TopK = resp.TopK
	result.PV = resp.PV
	result.Depth = resp.Depth
	result.Nodes = resp.Nodes
	result.DurationMs = resp.DurationMs
	result.Aborted = resp.Aborted
	log.Info().
		Str("component", "ai:queue").
		Str("id", result.ID).
		Int("depth", result.Depth).
		Int64("nodes", result.Nodes).
		Int64("duration_ms", result.DurationMs).
		Bool("aborted", result.Aborted).
		Msg("board analysed")
	q.finishTaskProcessing(task.hash, result)
}

func queueWorkerCount(config Config, cpuCount int) int {
	if cpuCount < 1 {
		cpuCount = 1
	}
	workers := config.QueueWorkers
	if workers <= 0 {
		workers = 1
	}
	if workers > cpuCount {
		workers = cpuCount
	}
	return workers
}

func queueWorkerCountForHost(config Config) int {
	return queueWorkerCount(config, runtime.NumCPU())
}

func sortAnalysisQueue(entries []analysisEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return compareAnalysisPriority(entries[i], entries[j]) < 0
	})
}

// compareAnalysisPriority orders by hits, then stone count, then age, then hash.
func compareAnalysisPriority(a, b analysisEntry) int {
	if a.Hits != b.Hits {
		if a.Hits > b.Hits {
			return -1
		}
		return 1
	}
	if a.Stones != b.Stones {
		if a.Stones > b.Stones {
			return -1
		}
		return 1
	}
	if !a.Created.Equal(b.Created) {
		if a.Created.Before(b.Created) {
			return -1
		}
		return 1
	}
	if a.Hash < b.Hash {
		return -1
	}
	if a.Hash > b.Hash {
		return 1
	}
	return 0
}
