package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sanyuanya/gomoku-game/engine"
)

const (
	modeSelfplay = "selfplay"
	modeMatch    = "match"
)

type trainerConfig struct {
	Mode         string
	BackendURL   string
	Size         int
	Games        int
	Parallel     int
	Seed         uint64
	OpeningPlies int
	MaxPlies     int
	DifficultyA  engine.Difficulty
	DifficultyB  engine.Difficulty
	TimeBudgetMs int
	EloK         float64
	OutPath      string
}

func defaultTrainerConfig() trainerConfig {
	return trainerConfig{
		Mode:         modeSelfplay,
		Size:         15,
		Games:        8,
		Parallel:     2,
		OpeningPlies: 4,
		DifficultyA:  engine.DifficultyNormal,
		DifficultyB:  engine.DifficultyHard,
		TimeBudgetMs: 300,
		EloK:         20,
		OutPath:      "data/games.parquet",
	}
}

func loadTrainerConfig() (trainerConfig, error) {
	cfg := defaultTrainerConfig()
	cfg.Mode = strings.ToLower(getenv("GOMOKU_TRAINER_MODE", cfg.Mode))
	cfg.BackendURL = strings.TrimRight(getenv("GOMOKU_BACKEND_URL", cfg.BackendURL), "/")
	cfg.Size = getenvInt("GOMOKU_TRAINER_SIZE", cfg.Size)
	cfg.Games = getenvInt("GOMOKU_TRAINER_GAMES", cfg.Games)
	cfg.Parallel = getenvInt("GOMOKU_TRAINER_PARALLEL", cfg.Parallel)
	cfg.OpeningPlies = getenvInt("GOMOKU_TRAINER_OPENING_PLIES", cfg.OpeningPlies)
	cfg.MaxPlies = getenvInt("GOMOKU_TRAINER_MAX_PLIES", cfg.MaxPlies)
	cfg.TimeBudgetMs = getenvInt("GOMOKU_TRAINER_TIME_BUDGET_MS", cfg.TimeBudgetMs)
	cfg.EloK = getenvFloat("GOMOKU_TRAINER_ELO_K", cfg.EloK)
	cfg.OutPath = getenv("GOMOKU_TRAINER_OUT", cfg.OutPath)

	seed := getenv("GOMOKU_TRAINER_SEED", "")
	if seed == "" {
		cfg.Seed = uint64(time.Now().UnixNano())
	} else {
		parsed, err := strconv.ParseUint(seed, 10, 64)
		if err != nil {
			return trainerConfig{}, fmt.Errorf("GOMOKU_TRAINER_SEED: %w", err)
		}
		cfg.Seed = parsed
	}

	var err error
	if cfg.DifficultyA, err = engine.ParseDifficulty(getenv("GOMOKU_TRAINER_DIFFICULTY", string(cfg.DifficultyA))); err != nil {
		return trainerConfig{}, fmt.Errorf("GOMOKU_TRAINER_DIFFICULTY: %w", err)
	}
	if cfg.DifficultyB, err = engine.ParseDifficulty(getenv("GOMOKU_TRAINER_DIFFICULTY_B", string(cfg.DifficultyB))); err != nil {
		return trainerConfig{}, fmt.Errorf("GOMOKU_TRAINER_DIFFICULTY_B: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c trainerConfig) Validate() error {
	if c.Mode != modeSelfplay && c.Mode != modeMatch {
		return fmt.Errorf("unknown trainer mode %q", c.Mode)
	}
	if !engine.IsSupportedSize(c.Size) {
		return fmt.Errorf("%w: %d", engine.ErrUnsupportedSize, c.Size)
	}
	if c.Games <= 0 || c.Parallel <= 0 {
		return errors.New("games and parallel must be positive")
	}
	if c.OpeningPlies >= c.Size*c.Size {
		return fmt.Errorf("opening of %d plies does not fit a %dx%d board", c.OpeningPlies, c.Size, c.Size)
	}
	if c.EloK <= 0 {
		return errors.New("elo k must be positive")
	}
	if c.OutPath == "" {
		return errors.New("output path is required")
	}
	return nil
}

func main() {
	setupLogger()
	cfg, err := loadTrainerConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid trainer configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var src moveSource = localSource{}
	if cfg.BackendURL != "" {
		remote := newRemoteSource(cfg.BackendURL, &http.Client{Timeout: 30 * time.Second})
		if err := remote.waitReady(ctx, 60*time.Second); err != nil {
			log.Fatal().Err(err).Str("backend", cfg.BackendURL).Msg("backend not reachable")
		}
		src = remote
	}

	log.Info().
		Str("component", "trainer").
		Str("mode", cfg.Mode).
		Str("source", src.Name()).
		Int("games", cfg.Games).
		Int("parallel", cfg.Parallel).
		Uint64("seed", cfg.Seed).
		Msg("trainer started")

	summary, err := runTrainer(ctx, cfg, src)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("trainer stopped")
		os.Exit(1)
	}
	summary.log()
}

func setupLogger() {
	level, err := zerolog.ParseLevel(getenv("GOMOKU_LOG_LEVEL", "info"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if getenv("GOMOKU_LOG_PRETTY", "") != "" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var parsed int
	if _, err := fmt.Sscanf(value, "%d", &parsed); err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func getenvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var parsed float64
	if _, err := fmt.Sscanf(value, "%f", &parsed); err != nil {
		return fallback
	}
	return parsed
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
