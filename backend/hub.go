package main

import (
	"encoding/json"
	"sync"
)

// Hub fans analysis events out to every connected websocket client.
type Hub struct {
	mu        sync.Mutex
	clients   map[*Client]struct{}
	broadcast chan analysisEvent
}

type Client struct {
	hub  *Hub
	send chan []byte
}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		broadcast: make(chan analysisEvent, 64),
	}
}

func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case payload := <-h.broadcast:
			msg := wsMessage{Type: "analysis", Payload: mustMarshal(payload)}
			h.mu.Lock()
			for client := range h.clients {
				client.sendJSON(msg)
			}
			h.mu.Unlock()
		}
	}
}

// Publish drops the event when the broadcast buffer is full.
func (h *Hub) Publish(payload analysisEvent) {
	select {
	case h.broadcast <- payload:
	default:
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) HasClients() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients) > 0
}

func (c *Client) sendJSON(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
