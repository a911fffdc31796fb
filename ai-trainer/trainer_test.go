package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanyuanya/gomoku-game/engine"
)

// rowSource has black fill the top row and white the bottom row, so black completes
// five first.
type rowSource struct {
	calls atomic.Int64
}

func (s *rowSource) Name() string { return "rows" }

func (s *rowSource) NextMove(_ context.Context, req moveRequest) (engine.Response, error) {
	s.calls.Add(1)
	y := 0
	if req.Player == engine.PlayerWhite {
		y = req.Board.Size() - 1
	}
	for x := 0; x < req.Board.Size(); x++ {
		if req.Board.IsEmpty(x, y) {
			return engine.Response{
				BestMove: &engine.Candidate{X: x, Y: y, Score: float64(x), Reason: "row"},
				Depth:    2,
				Nodes:    10,
			}, nil
		}
	}
	return engine.Response{}, nil
}

type emptySource struct{}

func (emptySource) Name() string { return "empty" }

func (emptySource) NextMove(context.Context, moveRequest) (engine.Response, error) {
	return engine.Response{}, nil
}

type failingSource struct{}

func (failingSource) Name() string { return "failing" }

func (failingSource) NextMove(context.Context, moveRequest) (engine.Response, error) {
	return engine.Response{}, errors.New("engine unavailable")
}

func testTrainerConfig(t *testing.T, mutate func(*trainerConfig)) trainerConfig {
	t.Helper()
	cfg := defaultTrainerConfig()
	cfg.Games = 2
	cfg.Parallel = 1
	cfg.Seed = 42
	cfg.OpeningPlies = 2
	cfg.OutPath = filepath.Join(t.TempDir(), "out", "games.parquet")
	if mutate != nil {
		mutate(&cfg)
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestBuildOpeningIsSeededAndDistinct(t *testing.T) {
	first := buildOpening(15, 6, 7, 0)
	again := buildOpening(15, 6, 7, 0)
	other := buildOpening(15, 6, 7, 1)
	require.Equal(t, first, again)
	require.NotEqual(t, first, other)

	seen := map[engine.Move]bool{}
	for _, m := range first {
		require.True(t, m.IsValid(15))
		require.False(t, seen[m], "duplicate opening cell %s", m)
		seen[m] = true
		assert.LessOrEqual(t, abs(m.X-7), 2)
		assert.LessOrEqual(t, abs(m.Y-7), 2)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestScheduleGamesMatchSwapsColours(t *testing.T) {
	cfg := testTrainerConfig(t, func(c *trainerConfig) {
		c.Mode = modeMatch
		c.Games = 4
		c.DifficultyA = engine.DifficultyEasy
		c.DifficultyB = engine.DifficultyHard
	})
	specs := scheduleGames(cfg)
	require.Len(t, specs, 4)
	require.Equal(t, specs[0].Opening, specs[1].Opening)
	require.NotEqual(t, specs[0].Opening, specs[2].Opening)
	require.Equal(t, "A", specs[0].Black.ID)
	require.Equal(t, "B", specs[1].Black.ID)
	require.Equal(t, engine.DifficultyHard, specs[1].Black.Difficulty)
	require.NotEqual(t, specs[0].ID, specs[1].ID)
}

func TestScheduleGamesSelfplayUsesOneSide(t *testing.T) {
	cfg := testTrainerConfig(t, nil)
	for _, spec := range scheduleGames(cfg) {
		require.Equal(t, spec.Black, spec.White)
		require.Equal(t, cfg.DifficultyA, spec.Black.Difficulty)
	}
}

func TestPlayGameRecordsRowsAndOutcome(t *testing.T) {
	cfg := testTrainerConfig(t, nil)
	spec := scheduleGames(cfg)[0]
	res, err := playGame(context.Background(), &rowSource{}, cfg, spec)
	require.NoError(t, err)
	require.Equal(t, engine.PlayerBlack, res.Winner)
	require.Equal(t, 2+9, res.Plies)
	require.Len(t, res.Rows, res.Plies)

	for i, row := range res.Rows {
		require.Equal(t, int32(i), row.Ply)
		require.Len(t, row.Board, 15*15)
		if engine.Player(row.Player) == engine.PlayerBlack {
			require.Equal(t, int32(1), row.Outcome)
		} else {
			require.Equal(t, int32(-1), row.Outcome)
		}
	}
	require.Equal(t, engine.ReasonOpening, res.Rows[0].Reason)
	require.Equal(t, "row", res.Rows[2].Reason)
	require.Equal(t, int32(2), res.Rows[2].Depth)

	// the snapshot is taken before the stone lands
	last := res.Rows[len(res.Rows)-1]
	require.Equal(t, byte(0), last.Board[int(last.Y)*15+int(last.X)])
	require.Equal(t, byte(1), last.Board[0])
}

func TestPlayGameWithoutMoveIsDraw(t *testing.T) {
	cfg := testTrainerConfig(t, nil)
	res, err := playGame(context.Background(), emptySource{}, cfg, scheduleGames(cfg)[0])
	require.NoError(t, err)
	require.Zero(t, res.Winner)
	require.Equal(t, 2, res.Plies)
	for _, row := range res.Rows {
		require.Zero(t, row.Outcome)
	}
}

func TestPlayGameStopsAtMaxPlies(t *testing.T) {
	cfg := testTrainerConfig(t, func(c *trainerConfig) { c.MaxPlies = 5 })
	res, err := playGame(context.Background(), &rowSource{}, cfg, scheduleGames(cfg)[0])
	require.NoError(t, err)
	require.Equal(t, 5, res.Plies)
	require.Zero(t, res.Winner)
}

func TestRunTrainerWritesParquet(t *testing.T) {
	cfg := testTrainerConfig(t, func(c *trainerConfig) { c.Games = 3; c.Parallel = 2 })
	summary, err := runTrainer(context.Background(), cfg, &rowSource{})
	require.NoError(t, err)
	require.Equal(t, 3, summary.Games)
	require.Equal(t, 3, summary.BlackWins)
	require.Empty(t, summary.Standings)

	rows, err := parquet.ReadFile[moveRow](cfg.OutPath)
	require.NoError(t, err)
	require.Len(t, rows, summary.Rows)
	require.Equal(t, 3*11, len(rows))
	require.NoFileExists(t, cfg.OutPath+".tmp")
}

func TestRunTrainerMatchUpdatesElo(t *testing.T) {
	cfg := testTrainerConfig(t, func(c *trainerConfig) {
		c.Mode = modeMatch
		c.Games = 4
		c.DifficultyA = engine.DifficultyEasy
		c.DifficultyB = engine.DifficultyNormal
	})
	summary, err := runTrainer(context.Background(), cfg, &rowSource{})
	require.NoError(t, err)
	require.Len(t, summary.Standings, 2)
	// black always wins, so both sides go 2-2 and stay near the start
	for _, c := range summary.Standings {
		require.Equal(t, 2, c.Wins)
		require.Equal(t, 2, c.Losses)
		require.InDelta(t, startingElo, c.Elo, cfg.EloK)
	}
}

func TestRunTrainerReportsSourceErrors(t *testing.T) {
	cfg := testTrainerConfig(t, nil)
	_, err := runTrainer(context.Background(), cfg, failingSource{})
	require.ErrorContains(t, err, "engine unavailable")
	require.NoFileExists(t, cfg.OutPath)
}

func TestRunTrainerHonoursCancellation(t *testing.T) {
	cfg := testTrainerConfig(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &rowSource{}
	_, err := runTrainer(ctx, cfg, src)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, src.calls.Load())
}

func TestUpdateEloIsZeroSum(t *testing.T) {
	a := &contender{ID: "A", Elo: 1600}
	b := &contender{ID: "B", Elo: 1400}
	updateElo(a, b, 0, 20)
	require.Less(t, a.Elo, 1600.0)
	require.InDelta(t, 3000.0, a.Elo+b.Elo, 1e-9)

	list := []contender{{ID: "x", Elo: 1400}, {ID: "y", Elo: 1550}, {ID: "a", Elo: 1400}}
	sortContendersByElo(list)
	require.Equal(t, []string{"y", "a", "x"}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestLocalSourcePlaysOpening(t *testing.T) {
	resp, err := localSource{}.NextMove(context.Background(), moveRequest{
		Board:      engine.NewBoard(15),
		Player:     engine.PlayerBlack,
		Difficulty: engine.DifficultyEasy,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.BestMove)
	require.True(t, resp.BestMove.Move().IsValid(15))
}

func TestRemoteSourcePostsMoves(t *testing.T) {
	var got remoteMovePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/ping":
			w.WriteHeader(http.StatusOK)
		case "/api/move":
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if got.Player == engine.PlayerWhite {
				http.Error(w, `{"error":"invalid player"}`, http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(engine.Response{BestMove: &engine.Candidate{X: 3, Y: 4, Reason: "win_now"}, Depth: 6})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := newRemoteSource(srv.URL, srv.Client())
	require.NoError(t, src.waitReady(context.Background(), time.Second))

	b := engine.NewBoard(15)
	b.Set(7, 7, engine.CellWhite)
	resp, err := src.NextMove(context.Background(), moveRequest{Board: b, Player: engine.PlayerBlack, Difficulty: engine.DifficultyHard, TimeBudgetMs: 250})
	require.NoError(t, err)
	require.Equal(t, engine.Move{X: 3, Y: 4}, resp.BestMove.Move())
	require.Equal(t, 6, resp.Depth)
	require.Equal(t, 15, got.Size)
	require.Equal(t, 2, got.Board[7*15+7])
	require.Equal(t, engine.DifficultyHard, got.Difficulty)
	require.Equal(t, 250, got.TimeBudgetMs)

	_, err = src.NextMove(context.Background(), moveRequest{Board: b, Player: engine.PlayerWhite})
	require.ErrorContains(t, err, "400")
}

func TestRemoteSourceWaitReadyTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := newRemoteSource(srv.URL, srv.Client()).waitReady(ctx, time.Minute)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoadTrainerConfigFromEnv(t *testing.T) {
	t.Setenv("GOMOKU_TRAINER_MODE", "MATCH")
	t.Setenv("GOMOKU_BACKEND_URL", "http://backend:8080/")
	t.Setenv("GOMOKU_TRAINER_SEED", "99")
	t.Setenv("GOMOKU_TRAINER_PARALLEL", "4")
	t.Setenv("GOMOKU_TRAINER_DIFFICULTY", "easy")
	t.Setenv("GOMOKU_TRAINER_SIZE", "19")
	cfg, err := loadTrainerConfig()
	require.NoError(t, err)
	require.Equal(t, modeMatch, cfg.Mode)
	require.Equal(t, "http://backend:8080", cfg.BackendURL)
	require.Equal(t, uint64(99), cfg.Seed)
	require.Equal(t, 4, cfg.Parallel)
	require.Equal(t, 19, cfg.Size)
	require.Equal(t, engine.DifficultyEasy, cfg.DifficultyA)
	require.Equal(t, engine.DifficultyHard, cfg.DifficultyB)
}

func TestLoadTrainerConfigRejectsBadInput(t *testing.T) {
	cases := map[string]map[string]string{
		"mode":       {"GOMOKU_TRAINER_MODE": "tournament"},
		"seed":       {"GOMOKU_TRAINER_SEED": "abc"},
		"difficulty": {"GOMOKU_TRAINER_DIFFICULTY_B": "insane"},
		"size":       {"GOMOKU_TRAINER_SIZE": "13"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := loadTrainerConfig()
			require.Error(t, err)
		})
	}
}
