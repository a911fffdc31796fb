package main

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/sanyuanya/gomoku-game/engine"
)

type analysisQueueEntryDTO struct {
	ID                  string        `json:"id"`
	Board               [][]int       `json:"board"`
	Player              engine.Player `json:"player"`
	Stones              int           `json:"stones"`
	CurrentDepth        int           `json:"current_depth"`
	TargetDepth         int           `json:"target_depth"`
	Hits                int           `json:"hits"`
	Analyzing           bool          `json:"analyzing"`
	AnalysisStartedAtMs int64         `json:"analysis_started_at_ms"`
}

type analysisQueueResponse struct {
	Queue        []analysisQueueEntryDTO `json:"queue"`
	TotalInQueue int                     `json:"total_in_queue"`
}

type analysisEvent struct {
	Event        string                  `json:"event"`
	Entry        *analysisEventEntry     `json:"entry,omitempty"`
	Best         *engine.Candidate       `json:"best,omitempty"`
	Score        float64                 `json:"score,omitempty"`
	Result       *analysisResult         `json:"result,omitempty"`
	Queue        []analysisQueueEntryDTO `json:"queue,omitempty"`
	TotalInQueue int                     `json:"total_in_queue"`
	UpdatedAt    int64                   `json:"updated_at_ms"`
}

type analysisEventEntry struct {
	ID                  string `json:"id"`
	CurrentDepth        int    `json:"current_depth"`
	TargetDepth         int    `json:"target_depth"`
	Hits                int    `json:"hits"`
	Analyzing           bool   `json:"analyzing"`
	AnalysisStartedAtMs int64  `json:"analysis_started_at_ms"`
}

var wsUpgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// serveAnalysisWS sends a queue snapshot, then streams queue events until the
// client goes away.
func serveAnalysisWS(hub *Hub, queue *analysisQueue, limit int, w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Str("component", "ws").Msg("upgrade failed")
		return
	}
	client := &Client{hub: hub, send: make(chan []byte, 16)}
	hub.Register(client)

	snapshot := analysisEvent{
		Event:        "snapshot",
		Queue:        queue.Top(limit),
		TotalInQueue: queue.Total(),
		UpdatedAt:    time.Now().UnixMilli(),
	}
	client.sendJSON(wsMessage{Type: "analysis", Payload: mustMarshal(snapshot)})

	go func() {
		defer conn.Close()
		if err := writeWSWithHeartbeat(conn, client.send); err != nil {
			log.Debug().Err(err).Str("component", "ws").Msg("analysis writer stopped")
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			hub.Unregister(client)
			return
		}
	}
}

func boardToIntGrid(board engine.Board) [][]int {
	if board.Size() == 0 {
		return [][]int{}
	}
	return lo.Chunk(board.Ints(), board.Size())
}

func analysisEntryToDTO(entry analysisEntry) analysisQueueEntryDTO {
	return analysisQueueEntryDTO{
		ID:                  hashToBoardID(entry.Hash),
		Board:               boardToIntGrid(entry.Board),
		Player:              entry.Player,
		Stones:              entry.Stones,
		CurrentDepth:        entry.CurrentDepth,
		TargetDepth:         entry.TargetDepth,
		Hits:                entry.Hits,
		Analyzing:           entry.Analyzing,
		AnalysisStartedAtMs: entry.AnalysisStartedAtMs,
	}
}

func analysisEntryToEventEntry(entry analysisEntry) analysisEventEntry {
	return analysisEventEntry{
		ID:                  hashToBoardID(entry.Hash),
		CurrentDepth:        entry.CurrentDepth,
		TargetDepth:         entry.TargetDepth,
		Hits:                entry.Hits,
		Analyzing:           entry.Analyzing,
		AnalysisStartedAtMs: entry.AnalysisStartedAtMs,
	}
}
