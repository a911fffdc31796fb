package main

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsIdlePingInterval = 30 * time.Second
	wsWriteTimeout     = 10 * time.Second
)

// writeWSWithHeartbeat drains send onto conn and writes a ping message whenever the
// connection has been quiet for wsIdlePingInterval. It returns nil once send is closed.
func writeWSWithHeartbeat(conn *websocket.Conn, send <-chan []byte) error {
	return writeWithHeartbeat(conn, send, wsIdlePingInterval)
}

func writeWithHeartbeat(conn *websocket.Conn, send <-chan []byte, idle time.Duration) error {
	ticker := time.NewTicker(idle)
	defer ticker.Stop()
	lastWrite := time.Now()
	pingPayload := mustMarshal(wsMessage{Type: "ping"})

	write := func(data []byte) error {
		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return err
		}
		lastWrite = time.Now()
		return nil
	}

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return nil
			}
			if err := write(msg); err != nil {
				return err
			}
		case <-ticker.C:
			if time.Since(lastWrite) < idle {
				continue
			}
			if err := write(pingPayload); err != nil {
				return err
			}
		}
	}
}
