package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sanyuanya/gomoku-game/engine"
)

type moveRequest struct {
	Board        engine.Board
	Player       engine.Player
	Difficulty   engine.Difficulty
	TimeBudgetMs int
}

// moveSource picks the next move for a position, either in-process or through a backend.
type moveSource interface {
	Name() string
	NextMove(ctx context.Context, req moveRequest) (engine.Response, error)
}

type localSource struct{}

func (localSource) Name() string { return "local" }

func (localSource) NextMove(ctx context.Context, req moveRequest) (engine.Response, error) {
	if err := ctx.Err(); err != nil {
		return engine.Response{}, err
	}
	return engine.ComputeMove(engine.Request{
		Board:        req.Board.Ints(),
		Size:         req.Board.Size(),
		Player:       req.Player,
		Difficulty:   req.Difficulty,
		TimeBudgetMs: req.TimeBudgetMs,
	})
}

type remoteSource struct {
	client  *http.Client
	baseURL string
}

func newRemoteSource(baseURL string, client *http.Client) *remoteSource {
	return &remoteSource{client: client, baseURL: baseURL}
}

func (s *remoteSource) Name() string { return "backend" }

type remoteMovePayload struct {
	Board        []int             `json:"board"`
	Size         int               `json:"size"`
	Player       engine.Player     `json:"player"`
	Difficulty   engine.Difficulty `json:"difficulty"`
	TimeBudgetMs int               `json:"time_budget_ms,omitempty"`
}

func (s *remoteSource) NextMove(ctx context.Context, req moveRequest) (engine.Response, error) {
	var resp engine.Response
	err := s.postJSON(ctx, "/api/move", remoteMovePayload{
		Board:        req.Board.Ints(),
		Size:         req.Board.Size(),
		Player:       req.Player,
		Difficulty:   req.Difficulty,
		TimeBudgetMs: req.TimeBudgetMs,
	}, &resp)
	return resp, err
}

func (s *remoteSource) waitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if err := s.ping(ctx); err == nil {
			return nil
		}
		if !sleepWithContext(ctx, time.Second) {
			return ctx.Err()
		}
	}
	return fmt.Errorf("timeout after %s", timeout)
}

func (s *remoteSource) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/ping", nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping status %d", resp.StatusCode)
	}
	return nil
}

func (s *remoteSource) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("POST %s -> %d: %s", path, resp.StatusCode, bytes.TrimSpace(respBody))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
