package sync

import (
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeTimeout = 2 * time.Second
	historySize  = 50
	// sendBuffer must hold a full history replay.
	sendBuffer = historySize + 14
)

// Hub fans specimen events out to every connected TCP and websocket client.
// Each client has its own queue and writer goroutine, so publishing never
// waits on a socket. A client whose queue is full, or that cannot take a
// write within writeTimeout, is dropped. The last historySize events are
// replayed to websocket clients when they join.
type Hub struct {
	logger *zap.Logger

	mu        sync.Mutex
	clients   map[net.Conn]*subscriber
	wsClients map[*websocket.Conn]*subscriber
	history   []SpecimenEvent
}

type subscriber struct {
	send  chan []byte
	write func([]byte) error
	close func() error
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:    logger,
		clients:   make(map[net.Conn]*subscriber),
		wsClients: make(map[*websocket.Conn]*subscriber),
	}
}

// Add subscribes a TCP client. Its first line is a welcome message.
func (h *Hub) Add(conn net.Conn) {
	sub := h.newSubscriber(
		func(b []byte) error {
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			_, err := conn.Write(b)
			return err
		},
		conn.Close,
	)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = sub
	b, _ := encodeLine(map[string]any{"type": "welcome", "clients": len(h.clients)})
	sub.send <- b
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	if sub, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(sub.send)
	}
	h.mu.Unlock()
	_ = conn.Close()
}

// AddWS queues the recent history for ws and subscribes it. Both happen
// under the hub lock so no event is missed or delivered twice.
func (h *Hub) AddWS(ws *websocket.Conn) {
	sub := h.newSubscriber(
		func(b []byte) error {
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			return ws.WriteMessage(websocket.TextMessage, b)
		},
		ws.Close,
	)

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ev := range h.history {
		b, err := encodeLine(ev)
		if err != nil {
			continue
		}
		sub.send <- b
	}
	h.wsClients[ws] = sub
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	if sub, ok := h.wsClients[ws]; ok {
		delete(h.wsClients, ws)
		close(sub.send)
	}
	h.mu.Unlock()
	_ = ws.Close()
}

// newSubscriber starts the writer goroutine. It exits when send is closed
// or a write fails; a failed write closes the connection, which ends the
// owner's read loop and with it the subscription.
func (h *Hub) newSubscriber(write func([]byte) error, closeFn func() error) *subscriber {
	sub := &subscriber{send: make(chan []byte, sendBuffer), write: write, close: closeFn}
	go func() {
		for b := range sub.send {
			if err := sub.write(b); err != nil {
				h.logger.Debug("drop feed client", zap.Error(err))
				_ = sub.close()
				return
			}
		}
	}()
	return sub
}

// Publish implements Publisher. Recording and queueing share one critical
// section with AddWS.
func (h *Hub) Publish(ev SpecimenEvent) {
	b, err := encodeLine(ev)
	if err != nil {
		h.logger.Error("encode event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = append(h.history, ev)
	if len(h.history) > historySize {
		h.history = h.history[len(h.history)-historySize:]
	}

	for conn, sub := range h.clients {
		if !sub.offer(b) {
			h.logger.Debug("drop slow tcp client", zap.Stringer("remote", conn.RemoteAddr()))
			delete(h.clients, conn)
			close(sub.send)
			_ = conn.Close()
		}
	}
	for ws, sub := range h.wsClients {
		if !sub.offer(b) {
			h.logger.Debug("drop slow ws client")
			delete(h.wsClients, ws)
			close(sub.send)
			_ = ws.Close()
		}
	}
}

func (s *subscriber) offer(b []byte) bool {
	select {
	case s.send <- b:
		return true
	default:
		return false
	}
}

// Recent returns the retained history, oldest first.
func (h *Hub) Recent() []SpecimenEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]SpecimenEvent(nil), h.history...)
}

// encodeLine renders v as one newline-terminated JSON line.
func encodeLine(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.clients),
		WSClients:  len(h.wsClients),
	}
}
