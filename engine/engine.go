package engine

import (
	"fmt"
	"time"

	"golang.org/x/exp/constraints"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
)

const (
	minSafetyDepth = 4
	maxSafetyDepth = 12

	easyLimit          = 10
	normalPreciseDepth = 5
	normalPreciseTime  = 1200 * time.Millisecond
	hardMinTime        = 600 * time.Millisecond
	hardPreciseTime    = 2400 * time.Millisecond
)

// ParseDifficulty accepts the three difficulty names; an empty string means normal.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case "":
		return DifficultyNormal, nil
	case DifficultyEasy, DifficultyNormal, DifficultyHard:
		return Difficulty(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
}

func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyNormal || d == DifficultyHard
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	return min(hi, max(lo, v))
}

// PrecisionDepthBounds returns the allowed precision depth range for a board size.
func PrecisionDepthBounds(boardSize int) (int, int) {
	if boardSize == 19 {
		return 6, 12
	}
	return 8, 14
}

// Request asks for one move. Board is a flat row-major slice of 0/1/2 values.
type Request struct {
	Board          []int      `json:"board"`
	Size           int        `json:"size"`
	Player         Player     `json:"player"`
	Difficulty     Difficulty `json:"difficulty"`
	TimeBudgetMs   int        `json:"time_budget_ms"`
	PrecisionMode  bool       `json:"precision_mode"`
	PrecisionDepth int        `json:"precision_depth,omitempty"`
	SafetyDepth    int        `json:"safety_depth,omitempty"`
	PV             bool       `json:"pv,omitempty"`

	OnDepth func(DepthReport) `json:"-"`
}

type Response struct {
	BestMove   *Candidate    `json:"best_move"`
	TopK       []Candidate   `json:"top_k"`
	PV         []PVStep      `json:"pv,omitempty"`
	KeyThreats []ThreatRoute `json:"key_threats"`
	Depth      int           `json:"depth"`
	Nodes      int64         `json:"nodes"`
	DurationMs int64         `json:"duration_ms"`
	Aborted    bool          `json:"aborted"`

	Stats SearchStats `json:"-"`
}

// Validate checks the request and returns the board it describes.
func (r Request) Validate() (Board, error) {
	if !IsSupportedSize(r.Size) {
		return Board{}, fmt.Errorf("%w: %d", ErrUnsupportedSize, r.Size)
	}
	if !r.Player.Valid() {
		return Board{}, fmt.Errorf("%w: %d", ErrInvalidPlayer, r.Player)
	}
	if r.Difficulty != "" && !r.Difficulty.Valid() {
		return Board{}, fmt.Errorf("%w: %q", ErrInvalidDifficulty, r.Difficulty)
	}
	return BoardFromCells(r.Board, r.Size)
}

// SearchOptions maps the request onto search parameters per difficulty.
func (r Request) SearchOptions() SearchOptions {
	difficulty := r.Difficulty
	if difficulty == "" {
		difficulty = DifficultyNormal
	}
	budget := time.Duration(r.TimeBudgetMs) * time.Millisecond
	lo, hi := PrecisionDepthBounds(r.Size)
	opts := SearchOptions{
		Difficulty: difficulty,
		Precise:    r.PrecisionMode,
		PV:         r.PV,
		OnDepth:    r.OnDepth,
	}
	if r.PrecisionMode && r.SafetyDepth > 0 {
		opts.SafetyDepth = clamp(r.SafetyDepth, minSafetyDepth, maxSafetyDepth)
	}
	switch difficulty {
	case DifficultyHard:
		opts.Iterative = true
		if r.PrecisionMode {
			opts.MaxDepth = 10
			if r.Size == 19 {
				opts.MaxDepth = 7
			}
			if r.PrecisionDepth > 0 {
				opts.MaxDepth = clamp(r.PrecisionDepth, lo, hi)
			}
			opts.TimeBudget = max(budget, hardPreciseTime)
		} else {
			opts.MaxDepth = 6
			if r.Size == 19 {
				opts.MaxDepth = 4
			}
			opts.TimeBudget = max(budget, hardMinTime)
		}
	default:
		opts.Iterative = r.PrecisionMode
		opts.TimeBudget = budget
		if r.PrecisionMode {
			opts.MaxDepth = normalPreciseDepth
			if r.PrecisionDepth > 0 {
				opts.MaxDepth = clamp(r.PrecisionDepth, lo, hi)
			}
			opts.TimeBudget = max(budget, normalPreciseTime)
		} else {
			opts.MaxDepth = 3
			if r.Size == 19 {
				opts.MaxDepth = 2
			}
		}
	}
	return opts
}

// KeyThreats lists the leading routes of the side to move followed by the opponent's.
func KeyThreats(b Board, player Player) []ThreatRoute {
	self, opp := ThreatOverview(b, player)
	return append(self, opp...)
}

// ComputeMove answers a move request. Easy skips the tree search and returns the
// top generated candidate.
func ComputeMove(r Request) (Response, error) {
	b, err := r.Validate()
	if err != nil {
		return Response{}, err
	}
	start := time.Now()
	resp := Response{KeyThreats: KeyThreats(b, r.Player)}

	if r.Difficulty == DifficultyEasy {
		candidates := GenerateCandidates(b, r.Player, GenerateOptions{Difficulty: DifficultyEasy, Limit: easyLimit})
		if len(candidates) > topKCount {
			candidates = candidates[:topKCount]
		}
		resp.TopK = candidates
		if len(candidates) > 0 {
			best := candidates[0]
			resp.BestMove = &best
		}
		resp.DurationMs = time.Since(start).Milliseconds()
		return resp, nil
	}

	result, err := SearchBestMove(b, r.Player, r.SearchOptions())
	if err != nil {
		return Response{}, err
	}
	resp.BestMove = result.Best
	resp.TopK = result.TopK
	resp.PV = result.PV
	resp.Depth = result.Depth
	resp.Nodes = result.Nodes
	resp.DurationMs = result.Duration.Milliseconds()
	resp.Aborted = result.Aborted
	resp.Stats = result.Stats
	return resp, nil
}
