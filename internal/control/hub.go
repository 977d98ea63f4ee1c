package control

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"earworm/internal/domain"
)

const (
	clientBuffer = 32
	writeTimeout = 5 * time.Second
	commandLimit = 10 * time.Second
)

// Event is the JSON payload pushed to websocket clients.
type Event struct {
	Type    string                    `json:"type"`
	State   domain.SessionState       `json:"state,omitempty"`
	Reason  domain.SessionStateReason `json:"reason,omitempty"`
	Preview *domain.PreviewView       `json:"preview,omitempty"`
	Raw     string                    `json:"raw,omitempty"`
	Final   string                    `json:"final,omitempty"`
	Code    domain.ErrorCode          `json:"code,omitempty"`
	Detail  string                    `json:"detail,omitempty"`
}

// Message is what websocket clients send: a command plus optional edit text.
type Message struct {
	Command string `json:"command"`
	Text    string `json:"text,omitempty"`
}

// Reply acknowledges a client message.
type Reply struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// Hub is an EventSink that broadcasts to every connected websocket client.
type Hub struct {
	ctrl     Controller
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub(ctrl Controller, logger *slog.Logger) *Hub {
	return &Hub{
		ctrl:   ctrl,
		logger: logger,
		upgrader: websocket.Upgrader{CheckOrigin: sameMachineOrigin},
		clients:  make(map[*client]struct{}),
	}
}

// SetController attaches the coordinator once it exists. The hub is built
// first because the coordinator emits events into it.
func (h *Hub) SetController(ctrl Controller) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ctrl = ctrl
}

func (h *Hub) controller() Controller {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ctrl
}

func (h *Hub) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	h.broadcast(Event{Type: "state", State: state, Reason: reason})
}

func (h *Hub) PreviewChanged(view domain.PreviewView) {
	h.broadcast(Event{Type: "preview", Preview: &view})
}

func (h *Hub) FinalTranscript(raw string, final string) {
	h.broadcast(Event{Type: "final", Raw: raw, Final: final})
}

func (h *Hub) SessionError(code domain.ErrorCode, detail string) {
	h.broadcast(Event{Type: "error", Code: code, Detail: detail})
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("encode event failed", "type", event.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("dropping slow websocket client", "remote", c.remote)
			delete(h.clients, c)
			go c.close()
		}
	}
}

// ServeHTTP upgrades the request and serves one client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn:   conn,
		remote: r.RemoteAddr,
		send:   make(chan []byte, clientBuffer),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	if payload, err := json.Marshal(h.snapshot()); err == nil {
		c.send <- payload
	}

	go c.writeLoop(h.logger)
	c.readLoop(h)

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *Hub) snapshot() Event {
	ctrl := h.controller()
	if ctrl == nil {
		return Event{Type: "state", State: domain.SessionStateIdle}
	}
	status := ctrl.Status()
	event := Event{Type: "state", State: status.State}
	if view, ok := ctrl.Preview(); ok {
		event.Preview = &view
	}
	return event
}

func (h *Hub) handle(c *client, msg Message) {
	reply := Reply{Type: "reply", Command: msg.Command, OK: true}
	ctrl := h.controller()
	if ctrl == nil {
		reply.OK, reply.Error = false, "not ready"
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), commandLimit)
		err := dispatch(ctx, ctrl, msg.Command, msg.Text)
		cancel()
		if err != nil {
			reply.OK, reply.Error = false, err.Error()
		}
	}

	payload, err := json.Marshal(reply)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	case <-c.done:
	}
}

type client struct {
	conn   *websocket.Conn
	remote string
	send   chan []byte
	done   chan struct{}

	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *client) writeLoop(logger *slog.Logger) {
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !isNormalClose(err) {
					logger.Debug("websocket write failed", "remote", c.remote, "error", err)
				}
				c.close()
				return
			}
		}
	}
}

func (c *client) readLoop(h *Hub) {
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if !isNormalClose(err) {
				h.logger.Debug("websocket read failed", "remote", c.remote, "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil || msg.Command == "" {
			continue
		}
		h.handle(c, msg)
	}
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
