package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sanyuanya/gomoku-game/engine"
)

type Config struct {
	Addr              string            `json:"addr"`
	DefaultDifficulty engine.Difficulty `json:"default_difficulty"`
	TimeBudgetMs      int               `json:"time_budget_ms"`
	MaxTimeBudgetMs   int               `json:"max_time_budget_ms"`
	LogSearchStats    bool              `json:"log_search_stats"`

	QueueEnabled      bool `json:"queue_enabled"`
	QueueWorkers      int  `json:"queue_workers"`
	QueueLimit        int  `json:"queue_limit"`
	QueueTopBoards    int  `json:"queue_top_boards"`
	QueueResults      int  `json:"queue_results"`
	AnalysisDepth     int  `json:"analysis_depth"`
	AnalysisBudgetMs  int  `json:"analysis_budget_ms"`
	AnalysisSafety    int  `json:"analysis_safety_depth"`
	AnalyzeEveryMove  bool `json:"analyze_every_move"`
	DiagramCellPixels int  `json:"diagram_cell_px"`

	ResultsPath string `json:"results_path"`
}

type ConfigStore struct {
	mu     sync.RWMutex
	config Config
}

func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		DefaultDifficulty: engine.DifficultyNormal,
		TimeBudgetMs:      500,
		MaxTimeBudgetMs:   10000,
		LogSearchStats:    false,

		QueueEnabled:     true,
		QueueWorkers:     1,
		QueueLimit:       256,
		QueueTopBoards:   10,
		QueueResults:     128,
		AnalysisDepth:    0, // 0 lets the engine pick the precision default for the board size
		AnalysisBudgetMs: 5000,
		AnalysisSafety:   0,
		AnalyzeEveryMove: false,

		DiagramCellPixels: 32,

		ResultsPath: "",
	}
}

// LoadConfig starts from DefaultConfig and applies GOMOKU_* environment overrides.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	cfg.Addr = getenv("GOMOKU_ADDR", cfg.Addr)
	difficulty, err := engine.ParseDifficulty(getenv("GOMOKU_DEFAULT_DIFFICULTY", string(cfg.DefaultDifficulty)))
	if err != nil {
		return Config{}, fmt.Errorf("GOMOKU_DEFAULT_DIFFICULTY: %w", err)
	}
	cfg.DefaultDifficulty = difficulty
	cfg.TimeBudgetMs = getenvInt("GOMOKU_TIME_BUDGET_MS", cfg.TimeBudgetMs)
	cfg.MaxTimeBudgetMs = getenvInt("GOMOKU_MAX_TIME_BUDGET_MS", cfg.MaxTimeBudgetMs)
	cfg.QueueWorkers = getenvInt("GOMOKU_QUEUE_WORKERS", cfg.QueueWorkers)
	cfg.QueueLimit = getenvInt("GOMOKU_QUEUE_LIMIT", cfg.QueueLimit)
	cfg.QueueEnabled = getenvBool("GOMOKU_QUEUE_ENABLED", cfg.QueueEnabled)
	cfg.QueueResults = getenvInt("GOMOKU_QUEUE_RESULTS", cfg.QueueResults)
	cfg.QueueTopBoards = getenvInt("GOMOKU_QUEUE_TOP_BOARDS", cfg.QueueTopBoards)
	cfg.AnalysisDepth = getenvInt("GOMOKU_ANALYSIS_DEPTH", cfg.AnalysisDepth)
	cfg.AnalysisBudgetMs = getenvInt("GOMOKU_ANALYSIS_BUDGET_MS", cfg.AnalysisBudgetMs)
	cfg.LogSearchStats = getenvBool("GOMOKU_LOG_SEARCH_STATS", cfg.LogSearchStats)
	cfg.ResultsPath = getenv("GOMOKU_RESULTS_PATH", cfg.ResultsPath)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if !c.DefaultDifficulty.Valid() {
		return fmt.Errorf("%w: %q", engine.ErrInvalidDifficulty, c.DefaultDifficulty)
	}
	if c.TimeBudgetMs < 0 || c.MaxTimeBudgetMs < 0 || c.AnalysisBudgetMs < 0 {
		return fmt.Errorf("time budgets must not be negative")
	}
	if c.MaxTimeBudgetMs > 0 && c.TimeBudgetMs > c.MaxTimeBudgetMs {
		return fmt.Errorf("time_budget_ms %d exceeds max_time_budget_ms %d", c.TimeBudgetMs, c.MaxTimeBudgetMs)
	}
	if c.QueueLimit < 0 || c.QueueWorkers < 0 {
		return fmt.Errorf("queue settings must not be negative")
	}
	return nil
}

// effectiveBudget applies the default budget to zero requests and caps the rest.
func (c Config) effectiveBudget(requested int) int {
	if requested <= 0 {
		requested = c.TimeBudgetMs
	}
	if c.MaxTimeBudgetMs > 0 && requested > c.MaxTimeBudgetMs {
		requested = c.MaxTimeBudgetMs
	}
	return requested
}

func NewConfigStore(cfg Config) *ConfigStore {
	return &ConfigStore{config: cfg}
}

func (c *ConfigStore) Get() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

func (c *ConfigStore) Update(newConfig Config) error {
	if err := newConfig.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	// the listen address is fixed once the server is up
	newConfig.Addr = c.config.Addr
	c.config = newConfig
	c.mu.Unlock()
	return nil
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

func getenvBool(key string, fallback bool) bool {
	value := strings.ToLower(os.Getenv(key))
	switch value {
	case "":
		return fallback
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
