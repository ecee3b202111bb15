package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rustyeddy/tradesim/replay"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Message is every frame the server sends on /ws.
type Message struct {
	Type   string         `json:"type"` // state, result or error
	State  *replay.State  `json:"state,omitempty"`
	Result *replay.Result `json:"result,omitempty"`
	Error  *ErrorBody     `json:"error,omitempty"`
}

type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(m Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(m)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// handleWS streams player state to the client and applies the commands
// it sends, rate limited per connection.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &wsConn{conn: conn}
	log := s.logger.With(zap.String("remote", r.RemoteAddr))
	log.Info("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		conn.Close()
		log.Info("websocket disconnected")
	}()

	updates := make(chan replay.State, 1)
	remove := s.player.OnChange(func(st replay.State) { offer(updates, st) })
	defer remove()

	st, err := s.player.Snapshot(ctx)
	if err != nil {
		return
	}
	if err := c.send(Message{Type: "state", State: &st}); err != nil {
		return
	}

	go s.pushStates(ctx, c, updates, log)

	limiter := rate.NewLimiter(rate.Limit(s.cfg.CommandsPerSecond), s.cfg.Burst)
	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd replay.Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var reply Message
		if !limiter.Allow() {
			reply = Message{Type: "error", Error: &ErrorBody{Error: "too many commands"}}
		} else if res, err := s.player.Apply(ctx, cmd); err != nil {
			log.Info("command rejected", zap.String("kind", string(cmd.Kind)), zap.Error(err))
			_, body := errorBody(err)
			reply = Message{Type: "error", Error: &body}
		} else {
			reply = Message{Type: "result", Result: &res}
		}

		if err := c.send(reply); err != nil {
			return
		}
	}
}

func (s *Server) pushStates(ctx context.Context, c *wsConn, updates <-chan replay.State, log *zap.Logger) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			// Unblocks the read loop when the server shuts down.
			c.conn.Close()
			return
		case st := <-updates:
			if err := c.send(Message{Type: "state", State: &st}); err != nil {
				log.Debug("state push failed", zap.Error(err))
				c.conn.Close()
				return
			}
		case <-ping.C:
			if err := c.ping(); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

// offer replaces any unsent state with st so slow clients only see the
// latest one. Called from the player goroutine, so it never blocks.
func offer(ch chan replay.State, st replay.State) {
	select {
	case ch <- st:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- st:
	default:
	}
}
