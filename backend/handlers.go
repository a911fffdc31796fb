package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/sanyuanya/gomoku-game/engine"
)

const (
	maxBodyBytes   = 1 << 20
	maxQueueListed = 100
)

var errInvalidPayload = errors.New("invalid payload")

// boardRequest describes a position either as a flat row-major board or as a
// move list replayed from an empty board.
type boardRequest struct {
	Board          []int             `json:"board,omitempty"`
	Moves          []engine.Move     `json:"moves,omitempty"`
	First          engine.Player     `json:"first,omitempty"`
	Size           int               `json:"size"`
	Player         engine.Player     `json:"player,omitempty"`
	Difficulty     engine.Difficulty `json:"difficulty,omitempty"`
	TimeBudgetMs   int               `json:"time_budget_ms,omitempty"`
	PrecisionMode  bool              `json:"precision_mode,omitempty"`
	PrecisionDepth int               `json:"precision_depth,omitempty"`
	SafetyDepth    int               `json:"safety_depth,omitempty"`
	PV             bool              `json:"pv,omitempty"`
	Limit          int               `json:"limit,omitempty"`
}

type diagramRequest struct {
	boardRequest
	Analyze     bool `json:"analyze"`
	ShowThreats bool `json:"show_threats"`
	CellPixels  int  `json:"cell_px,omitempty"`
}

type candidateDTO struct {
	Rank   int     `json:"rank"`
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
}

type candidatesResponse struct {
	Player     engine.Player  `json:"player"`
	Candidates []candidateDTO `json:"candidates"`
}

type threatsResponse struct {
	Player          engine.Player        `json:"player"`
	Self            []engine.ThreatRoute `json:"self"`
	Opponent        []engine.ThreatRoute `json:"opponent"`
	ImmediateWins   []engine.Move        `json:"immediate_wins"`
	ImmediateBlocks []engine.Move        `json:"immediate_blocks"`
	MustBlock       []engine.Move        `json:"must_block_cells"`
	Forks           []engine.Move        `json:"opponent_forks"`
}

type analysisEnqueueResponse struct {
	ID     string                 `json:"id"`
	Status enqueueStatus          `json:"status"`
	Entry  *analysisQueueEntryDTO `json:"entry,omitempty"`
	Result *analysisResult        `json:"result,omitempty"`
}

type api struct {
	config *ConfigStore
	queue  *analysisQueue
	hub    *Hub
}

func newRouter(a *api) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Get("/api/settings", a.getSettings)
	r.Post("/api/settings", a.postSettings)
	r.Post("/api/move", a.postMove)
	r.Post("/api/candidates", a.postCandidates)
	r.Post("/api/threats", a.postThreats)
	r.Post("/api/diagram", a.postDiagram)
	r.Post("/api/analysis", a.postAnalysis)
	r.Get("/api/analysis/queue", a.getAnalysisQueue)
	r.Get("/api/analysis/{id}", a.getAnalysis)
	r.Get("/ws/analysis", func(w http.ResponseWriter, r *http.Request) {
		serveAnalysisWS(a.hub, a.queue, a.config.Get().QueueTopBoards, w, r)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("component", "http").
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// position resolves the board and the side to move. Without an explicit player a
// flat board is given to the side with fewer stones, black on equal counts.
func (req boardRequest) position() (engine.Board, engine.Player, error) {
	size := req.Size
	if size == 0 {
		size = 15
		if len(req.Board) == 19*19 {
			size = 19
		}
	}
	if !engine.IsSupportedSize(size) {
		return engine.Board{}, 0, fmt.Errorf("%w: %d", engine.ErrUnsupportedSize, size)
	}
	if req.Player != 0 && !req.Player.Valid() {
		return engine.Board{}, 0, fmt.Errorf("%w: %d", engine.ErrInvalidPlayer, req.Player)
	}
	if req.Board == nil {
		first := req.First
		if first == 0 {
			first = engine.PlayerBlack
		}
		b, next, err := engine.BoardFromMoves(size, first, req.Moves)
		if err != nil {
			return engine.Board{}, 0, err
		}
		if req.Player != 0 {
			next = req.Player
		}
		return b, next, nil
	}
	if len(req.Moves) > 0 {
		return engine.Board{}, 0, fmt.Errorf("%w: board and moves are exclusive", errInvalidPayload)
	}
	b, err := engine.BoardFromCells(req.Board, size)
	if err != nil {
		return engine.Board{}, 0, err
	}
	if req.Player != 0 {
		return b, req.Player, nil
	}
	black := lo.Count(req.Board, int(engine.CellBlack))
	white := lo.Count(req.Board, int(engine.CellWhite))
	if black > white {
		return b, engine.PlayerWhite, nil
	}
	return b, engine.PlayerBlack, nil
}

func (req boardRequest) engineRequest(cfg Config) (engine.Request, error) {
	b, player, err := req.position()
	if err != nil {
		return engine.Request{}, err
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = cfg.DefaultDifficulty
	}
	return engine.Request{
		Board:          b.Ints(),
		Size:           b.Size(),
		Player:         player,
		Difficulty:     difficulty,
		TimeBudgetMs:   cfg.effectiveBudget(req.TimeBudgetMs),
		PrecisionMode:  req.PrecisionMode,
		PrecisionDepth: req.PrecisionDepth,
		SafetyDepth:    req.SafetyDepth,
		PV:             req.PV,
	}, nil
}

func (a *api) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.config.Get())
}

// postSettings merges the posted fields over the current configuration.
func (a *api) postSettings(w http.ResponseWriter, r *http.Request) {
	cfg := a.config.Get()
	if err := decodeJSON(w, r, &cfg); err != nil {
		writeError(w, err)
		return
	}
	if err := a.config.Update(cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	log.Info().Str("component", "config").Msg("settings updated")
	writeJSON(w, http.StatusOK, a.config.Get())
}

func (a *api) postMove(w http.ResponseWriter, r *http.Request) {
	var payload boardRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}
	cfg := a.config.Get()
	req, err := payload.engineRequest(cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := engine.ComputeMove(req)
	if err != nil {
		writeError(w, err)
		return
	}
	if cfg.LogSearchStats && req.Difficulty != engine.DifficultyEasy {
		engine.LogSearchStats("ai:"+string(req.Difficulty), resp.Stats)
	}
	if cfg.AnalyzeEveryMove && a.queue != nil {
		if b, err := engine.BoardFromCells(req.Board, req.Size); err == nil {
			if _, _, err := a.queue.Enqueue(b, req.Player); err != nil && !errors.Is(err, errQueueFull) {
				log.Warn().Err(err).Str("component", "ai:queue").Msg("auto analysis skipped")
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) postCandidates(w http.ResponseWriter, r *http.Request) {
	var payload boardRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}
	b, player, err := payload.position()
	if err != nil {
		writeError(w, err)
		return
	}
	difficulty := payload.Difficulty
	if difficulty == "" {
		difficulty = a.config.Get().DefaultDifficulty
	}
	if !difficulty.Valid() {
		writeError(w, fmt.Errorf("%w: %q", engine.ErrInvalidDifficulty, difficulty))
		return
	}
	candidates := engine.GenerateCandidates(b, player, engine.GenerateOptions{
		Difficulty: difficulty,
		Limit:      payload.Limit,
		Precise:    payload.PrecisionMode,
	})
	writeJSON(w, http.StatusOK, candidatesResponse{
		Player: player,
		Candidates: lo.Map(candidates, func(c engine.Candidate, i int) candidateDTO {
			return candidateDTO{Rank: i + 1, X: c.X, Y: c.Y, Score: c.Score, Reason: c.Reason}
		}),
	})
}

func (a *api) postThreats(w http.ResponseWriter, r *http.Request) {
	var payload boardRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}
	b, player, err := payload.position()
	if err != nil {
		writeError(w, err)
		return
	}
	resp := threatsResponse{Player: player}
	if payload.Limit > 0 {
		resp.Self = engine.TopThreatRoutes(b, player, payload.Limit)
		resp.Opponent = engine.TopThreatRoutes(b, player.Other(), payload.Limit)
	} else {
		resp.Self, resp.Opponent = engine.ThreatOverview(b, player)
	}
	resp.ImmediateWins = engine.ImmediateWins(b, player)
	resp.ImmediateBlocks = engine.ImmediateBlocks(b, player)
	resp.MustBlock = engine.MustBlockCellsForOpponentThreat(b, player)
	resp.Forks = engine.ForkThreatMovesForOpponent(b, player)
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) postDiagram(w http.ResponseWriter, r *http.Request) {
	var payload diagramRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}
	cfg := a.config.Get()
	b, player, err := payload.position()
	if err != nil {
		writeError(w, err)
		return
	}
	opts := diagramOptions{CellPixels: cfg.DiagramCellPixels}
	if payload.CellPixels > 0 {
		opts.CellPixels = payload.CellPixels
	}
	if payload.ShowThreats {
		opts.Marks = engine.MustBlockCellsForOpponentThreat(b, player)
	}
	if payload.Analyze {
		payload.PV = true
		req, err := payload.engineRequest(cfg)
		if err != nil {
			writeError(w, err)
			return
		}
		resp, err := engine.ComputeMove(req)
		if err != nil {
			writeError(w, err)
			return
		}
		opts.Best = resp.BestMove
		opts.PV = resp.PV
	}
	var buf bytes.Buffer
	renderDiagram(&buf, b, opts)
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (a *api) postAnalysis(w http.ResponseWriter, r *http.Request) {
	var payload boardRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}
	b, player, err := payload.position()
	if err != nil {
		writeError(w, err)
		return
	}
	entry, status, err := a.queue.Enqueue(b, player)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := analysisEnqueueResponse{ID: hashToBoardID(entry.Hash), Status: status}
	if status == enqueueDone {
		_, result, err := a.queue.Lookup(entry.Hash)
		if err == nil {
			resp.Result = result
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	dto := analysisEntryToDTO(entry)
	resp.Entry = &dto
	writeJSON(w, http.StatusAccepted, resp)
}

func (a *api) getAnalysisQueue(w http.ResponseWriter, r *http.Request) {
	limit := a.config.Get().QueueTopBoards
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	limit = min(limit, maxQueueListed)
	writeJSON(w, http.StatusOK, analysisQueueResponse{
		Queue:        a.queue.Top(limit),
		TotalInQueue: a.queue.Total(),
	})
}

func (a *api) getAnalysis(w http.ResponseWriter, r *http.Request) {
	hash, err := parseBoardID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	entry, result, err := a.queue.Lookup(hash)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := analysisEnqueueResponse{ID: hashToBoardID(hash), Entry: entry, Result: result}
	if result != nil {
		resp.Status = enqueueDone
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidPayload, err)
	}
	return nil
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, errInvalidPayload),
		errors.Is(err, engine.ErrInvalidBoard),
		errors.Is(err, engine.ErrInvalidMove),
		errors.Is(err, engine.ErrInvalidPlayer),
		errors.Is(err, engine.ErrUnsupportedSize),
		errors.Is(err, engine.ErrInvalidDifficulty):
		return http.StatusBadRequest
	case errors.Is(err, errUnknownBoard):
		return http.StatusNotFound
	case errors.Is(err, errQueueFull), errors.Is(err, errQueueDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
