package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
)

type client struct {
	conn   *websocket.Conn
	player string
	send   chan []byte
}

// writeLoop is the only writer on conn. It exits when the match closes
// the send channel.
func (c *client) writeLoop(log *zap.Logger) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug("websocket write failed", zap.String("player", c.player), zap.Error(err))
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// handleWS streams a match. The first message is the replayable setup;
// every accepted action follows as it happens. A client that names a
// player with ?player= may send actions for that player.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.withMatch(w, r, func(m *match) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Warn("websocket upgrade failed", zap.String("match", m.id), zap.Error(err))
			return
		}
		c := &client{conn: conn, player: r.URL.Query().Get("player"), send: make(chan []byte, sendBuffer)}
		go c.writeLoop(m.log)

		ctx := context.Background()
		if err := m.join(ctx, c); err != nil {
			close(c.send)
			return
		}
		defer m.leave(ctx, c)

		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg clientMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				m.log.Debug("discarding malformed message", zap.String("player", c.player), zap.Error(err))
				continue
			}
			switch msg.Type {
			case msgAction:
				if msg.Action == nil {
					continue
				}
				if c.player == "" {
					_ = m.do(ctx, func() {
						m.send(c, serverMessage{Type: msgReject, Seq: msg.Seq, Code: "forbidden", Reason: "spectators cannot act"})
					})
					continue
				}
				if err := m.dispatch(ctx, c, msg.Seq, *msg.Action); errors.Is(err, ErrClosed) {
					return
				}
			default:
				_ = m.do(ctx, func() {
					m.send(c, serverMessage{Type: msgError, Seq: msg.Seq, Reason: "unknown message type " + msg.Type})
				})
			}
		}
	})
}
