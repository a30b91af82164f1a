package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/benjamonnguyen/pomod"
)

const (
	feedPath         = "/ws"
	feedSendBuffer   = 16
	feedWriteTimeout = 5 * time.Second
)

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newFeedClient(conn *websocket.Conn) *feedClient {
	c := &feedClient{
		conn: conn,
		send: make(chan []byte, feedSendBuffer),
	}
	go c.writePump()
	return c
}

func (c *feedClient) writePump() {
	defer c.conn.Close() //nolint
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(feedWriteTimeout))
}

// statusFeed pushes timer status to websocket clients whenever it changes.
type statusFeed struct {
	status   func() pomod.Status
	upgrader websocket.Upgrader
	l        log.Logger

	mu      sync.Mutex
	clients map[*feedClient]bool
	last    pomod.Status
	closed  bool
}

func newStatusFeed(status func() pomod.Status, logger log.Logger) *statusFeed {
	return &statusFeed{
		status:  status,
		clients: make(map[*feedClient]bool),
		l:       logger,
	}
}

func (f *statusFeed) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(feedPath, f.handleWS)
	return mux
}

func (f *statusFeed) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.l.Error("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := f.addClient(conn)
	if c == nil {
		_ = conn.Close()
		return
	}
	f.l.Debug("feed client connected", "remote", r.RemoteAddr)

	go func() {
		defer func() {
			f.removeClient(c)
			f.l.Debug("feed client disconnected", "remote", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (f *statusFeed) addClient(conn *websocket.Conn) *feedClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}

	c := newFeedClient(conn)
	f.clients[c] = true
	f.broadcastLocked(c)
	return c
}

func (f *statusFeed) removeClient(c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeLocked(c)
}

func (f *statusFeed) removeLocked(c *feedClient) {
	if f.clients[c] {
		delete(f.clients, c)
		close(c.send)
	}
}

// Refresh broadcasts the current status if it differs from the last one
// sent. Reading and sending under one lock keeps clients from seeing
// statuses out of order.
func (f *statusFeed) Refresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.broadcastLocked(nil)
}

// broadcastLocked sends the current status to every client when it changed,
// and to fresh in any case.
func (f *statusFeed) broadcastLocked(fresh *feedClient) {
	s := f.status()
	changed := s != f.last
	if !changed && fresh == nil {
		return
	}
	f.last = s

	data, err := json.Marshal(pomod.NewStatusMessage(s))
	if err != nil {
		f.l.Error("failed to marshal status", "err", err)
		return
	}
	for c := range f.clients {
		if !changed && c != fresh {
			continue
		}
		select {
		case c.send <- data:
		default:
			f.l.Warn("feed client too slow, disconnecting")
			f.removeLocked(c)
		}
	}
}

func (f *statusFeed) ClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Close disconnects every client and rejects new ones.
func (f *statusFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for c := range f.clients {
		f.removeLocked(c)
	}
}
