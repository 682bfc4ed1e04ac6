package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ── Live preview ──

// liveSession orders the renders of one websocket connection. Every
// request takes a new generation and cancels the render in flight; a
// result is only delivered if its generation is still the latest.
type liveSession struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// begin starts a new generation derived from parent.
func (l *liveSession) begin(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	l.cancel = cancel
	return ctx, l.gen
}

// current reports whether gen is still the latest generation.
func (l *liveSession) current(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return gen == l.gen
}

// deliver runs send under the session lock if gen is still the latest
// generation, so no newer generation can begin between check and write.
// It reports whether send ran.
func (l *liveSession) deliver(gen uint64, send func() error) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return false, nil
	}
	return true, send()
}

func (l *liveSession) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// liveMessage is sent to the client for each delivered render.
type liveMessage struct {
	Type       string `json:"type"` // "frame" or "error"
	Generation uint64 `json:"generation"`
	PNG        string `json:"png,omitempty"` // base64
	Error      string `json:"error,omitempty"`
	ElapsedMs  int64  `json:"elapsedMs,omitempty"`
}

// wsConn serialises writes to one connection.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ws := &wsConn{conn: conn}
	var sess liveSession
	defer sess.stop()
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		var req renderRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("live connection closed", "err", err)
			}
			return
		}
		ctx, gen := sess.begin(r.Context())
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.liveRender(ctx, ws, &sess, gen, req)
		}()
	}
}

func (s *Server) liveRender(ctx context.Context, ws *wsConn, sess *liveSession, gen uint64, req renderRequest) {
	start := time.Now()
	job, err := s.resolve(req, nil)
	var buf bytes.Buffer
	if err == nil {
		err = s.renderTo(ctx, &buf, job)
	}
	if !sess.current(gen) || errors.Is(err, context.Canceled) {
		s.log.Debug("dropping stale preview", "generation", gen)
		return
	}

	msg := liveMessage{Type: "frame", Generation: gen, ElapsedMs: time.Since(start).Milliseconds()}
	if err != nil {
		msg = liveMessage{Type: "error", Generation: gen, Error: err.Error()}
	} else {
		msg.PNG = base64.StdEncoding.EncodeToString(buf.Bytes())
	}
	sent, err := sess.deliver(gen, func() error { return ws.WriteJSON(msg) })
	if err != nil {
		s.log.Debug("live write failed", "err", err)
	} else if !sent {
		s.log.Debug("dropping stale preview", "generation", gen)
	}
}
