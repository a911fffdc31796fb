package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/sanyuanya/gomoku-game/engine"
)

const startingElo = 1500.0

type gameSpec struct {
	ID      string
	Index   int
	Opening []engine.Move
	Black   contenderRef
	White   contenderRef
}

type contenderRef struct {
	ID         string
	Difficulty engine.Difficulty
}

type gameResult struct {
	Spec   gameSpec
	Winner engine.Player
	Plies  int
	Rows   []moveRow
}

type contender struct {
	ID         string
	Difficulty engine.Difficulty
	Elo        float64
	Wins       int
	Losses     int
	Draws      int
}

type trainerSummary struct {
	Mode      string
	Games     int
	BlackWins int
	WhiteWins int
	Draws     int
	Rows      int
	OutPath   string
	Standings []contender
}

// buildOpening picks distinct cells around the centre. The same seed and index always
// yield the same opening.
func buildOpening(boardSize, plies int, seed uint64, index int) []engine.Move {
	rng := rand.New(rand.NewSource(seed + uint64(index)*0x9e3779b97f4a7c15))
	center := boardSize / 2
	radius := 1
	for (2*radius+1)*(2*radius+1) < plies*2 && radius < center {
		radius++
	}
	used := map[engine.Move]bool{}
	opening := make([]engine.Move, 0, plies)
	for len(opening) < plies {
		m := engine.Move{X: center + rng.Intn(2*radius+1) - radius, Y: center + rng.Intn(2*radius+1) - radius}
		if !m.IsValid(boardSize) || used[m] {
			continue
		}
		used[m] = true
		opening = append(opening, m)
	}
	return opening
}

// scheduleGames lays out the games for a run. In match mode consecutive games share an
// opening with colours swapped.
func scheduleGames(cfg trainerConfig) []gameSpec {
	a := contenderRef{ID: "A", Difficulty: cfg.DifficultyA}
	b := contenderRef{ID: "B", Difficulty: cfg.DifficultyB}
	if cfg.Mode == modeSelfplay {
		b = contenderRef{ID: "A", Difficulty: cfg.DifficultyA}
	}
	specs := make([]gameSpec, 0, cfg.Games)
	for i := 0; i < cfg.Games; i++ {
		openingIndex := i
		black, white := a, b
		if cfg.Mode == modeMatch {
			openingIndex = i / 2
			if i%2 == 1 {
				black, white = b, a
			}
		}
		specs = append(specs, gameSpec{
			ID:      fmt.Sprintf("%016x-%04d", cfg.Seed, i),
			Index:   i,
			Opening: buildOpening(cfg.Size, cfg.OpeningPlies, cfg.Seed, openingIndex),
			Black:   black,
			White:   white,
		})
	}
	return specs
}

func playGame(ctx context.Context, src moveSource, cfg trainerConfig, spec gameSpec) (gameResult, error) {
	result := gameResult{Spec: spec}
	b := engine.NewBoard(cfg.Size)
	maxPlies := cfg.MaxPlies
	if maxPlies <= 0 || maxPlies > b.Len() {
		maxPlies = b.Len()
	}
	toMove := engine.PlayerBlack

	record := func(m engine.Move, difficulty engine.Difficulty, resp engine.Response, reason string, score float64) (bool, error) {
		row := newMoveRow(spec.ID, result.Plies, b, toMove, difficulty, m, reason, score, resp)
		won, _, err := engine.Place(b, m, toMove)
		if err != nil {
			return false, fmt.Errorf("game %s ply %d: %w", spec.ID, result.Plies, err)
		}
		result.Rows = append(result.Rows, row)
		result.Plies++
		if won {
			result.Winner = toMove
		}
		toMove = toMove.Other()
		return won, nil
	}

	for _, m := range spec.Opening {
		if won, err := record(m, "", engine.Response{}, engine.ReasonOpening, 0); err != nil || won {
			result.finish()
			return result, err
		}
	}

	for result.Plies < maxPlies && !b.IsFull() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		side := spec.Black
		if toMove == engine.PlayerWhite {
			side = spec.White
		}
		resp, err := src.NextMove(ctx, moveRequest{
			Board:        b.Clone(),
			Player:       toMove,
			Difficulty:   side.Difficulty,
			TimeBudgetMs: cfg.TimeBudgetMs,
		})
		if err != nil {
			return result, fmt.Errorf("game %s ply %d: %w", spec.ID, result.Plies, err)
		}
		if resp.BestMove == nil {
			break
		}
		won, err := record(resp.BestMove.Move(), side.Difficulty, resp, resp.BestMove.Reason, resp.BestMove.Score)
		if err != nil {
			return result, err
		}
		if won {
			break
		}
	}
	result.finish()
	return result, nil
}

// finish writes the final outcome into every row from the mover's point of view.
func (r *gameResult) finish() {
	for i := range r.Rows {
		switch {
		case r.Winner == 0:
			r.Rows[i].Outcome = 0
		case engine.Player(r.Rows[i].Player) == r.Winner:
			r.Rows[i].Outcome = 1
		default:
			r.Rows[i].Outcome = -1
		}
	}
}

func runTrainer(ctx context.Context, cfg trainerConfig, src moveSource) (trainerSummary, error) {
	specs := scheduleGames(cfg)
	results := make([]*gameResult, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Parallel)
	for _, spec := range specs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := playGame(gctx, src, cfg, spec)
			if err != nil {
				return err
			}
			results[spec.Index] = &res
			log.Debug().
				Str("component", "trainer").
				Str("game", spec.ID).
				Int("plies", res.Plies).
				Int("winner", int(res.Winner)).
				Msg("game finished")
			return nil
		})
	}
	runErr := g.Wait()
	if runErr == nil {
		runErr = ctx.Err()
	}

	summary := summarize(cfg, results)
	rows := lo.FlatMap(lo.Compact(results), func(res *gameResult, _ int) []moveRow {
		return res.Rows
	})
	if len(rows) > 0 {
		if err := writeMoveRows(cfg.OutPath, rows); err != nil {
			return summary, errors.Join(runErr, err)
		}
	}
	return summary, runErr
}

func summarize(cfg trainerConfig, results []*gameResult) trainerSummary {
	summary := trainerSummary{Mode: cfg.Mode, OutPath: cfg.OutPath}
	standings := map[string]*contender{}
	ensure := func(ref contenderRef) *contender {
		c, ok := standings[ref.ID]
		if !ok {
			c = &contender{ID: ref.ID, Difficulty: ref.Difficulty, Elo: startingElo}
			standings[ref.ID] = c
		}
		return c
	}
	for _, res := range results {
		if res == nil {
			continue
		}
		summary.Games++
		summary.Rows += len(res.Rows)
		switch res.Winner {
		case engine.PlayerBlack:
			summary.BlackWins++
		case engine.PlayerWhite:
			summary.WhiteWins++
		default:
			summary.Draws++
		}
		if cfg.Mode != modeMatch {
			continue
		}
		black, white := ensure(res.Spec.Black), ensure(res.Spec.White)
		scoreBlack := 0.5
		switch res.Winner {
		case engine.PlayerBlack:
			scoreBlack = 1
			black.Wins++
			white.Losses++
		case engine.PlayerWhite:
			scoreBlack = 0
			white.Wins++
			black.Losses++
		default:
			black.Draws++
			white.Draws++
		}
		updateElo(black, white, scoreBlack, cfg.EloK)
	}
	for _, c := range standings {
		summary.Standings = append(summary.Standings, *c)
	}
	sortContendersByElo(summary.Standings)
	return summary
}

func updateElo(a *contender, b *contender, resultForA float64, k float64) {
	expA := 1.0 / (1.0 + math.Pow(10, (b.Elo-a.Elo)/400.0))
	expB := 1.0 / (1.0 + math.Pow(10, (a.Elo-b.Elo)/400.0))
	a.Elo += k * (resultForA - expA)
	b.Elo += k * ((1.0 - resultForA) - expB)
}

func sortContendersByElo(list []contender) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Elo != list[j].Elo {
			return list[i].Elo > list[j].Elo
		}
		return list[i].ID < list[j].ID
	})
}

func (s trainerSummary) log() {
	log.Info().
		Str("component", "trainer").
		Str("mode", s.Mode).
		Int("games", s.Games).
		Int("black_wins", s.BlackWins).
		Int("white_wins", s.WhiteWins).
		Int("draws", s.Draws).
		Int("rows", s.Rows).
		Str("out", s.OutPath).
		Msg("trainer finished")
	for _, c := range s.Standings {
		log.Info().
			Str("component", "trainer").
			Str("id", c.ID).
			Str("difficulty", string(c.Difficulty)).
			Float64("elo", c.Elo).
			Int("wins", c.Wins).
			Int("losses", c.Losses).
			Int("draws", c.Draws).
			Msg("standing")
	}
}
