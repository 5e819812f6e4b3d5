package rpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"mediachain/core/types"
)

const (
	wsWriteTimeout  = 10 * time.Second
	wsSubscriberBuf = 256
)

// Hub fans committed events out to websocket subscribers. Subscribers that
// fall behind by more than their buffer are disconnected.
type Hub struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	logger *slog.Logger
}

type subscriber struct {
	prefix string
	ch     chan types.EventRecord
	once   sync.Once
}

func (s *subscriber) close() { s.once.Do(func() { close(s.ch) }) }

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{subs: make(map[*subscriber]struct{}), logger: logger}
}

// Publish implements the node event sink.
func (h *Hub) Publish(_ context.Context, records []types.EventRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		for _, rec := range records {
			if rec.Event == nil || !strings.HasPrefix(rec.Event.Type, sub.prefix) {
				continue
			}
			select {
			case sub.ch <- rec:
			default:
				delete(h.subs, sub)
				sub.close()
				h.logger.Warn("dropping slow event subscriber")
			}
		}
	}
	return nil
}

func (h *Hub) subscribe(prefix string) *subscriber {
	sub := &subscriber{prefix: prefix, ch: make(chan types.EventRecord, wsSubscriberBuf)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		sub.close()
	}
	h.mu.Unlock()
}

// Subscribers returns the number of connected streams.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeHTTP upgrades to a websocket and streams events. The optional type
// query parameter filters by event type prefix, e.g. ?type=promotion.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	sub := h.subscribe(strings.TrimSpace(r.URL.Query().Get("type")))
	defer h.unsubscribe(sub)

	ctx := conn.CloseRead(r.Context())
	if err := streamEvents(ctx, conn, sub.ch); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func streamEvents(ctx context.Context, conn *websocket.Conn, updates <-chan types.EventRecord) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-updates:
			if !ok {
				return conn.Close(websocket.StatusPolicyViolation, "subscriber too slow")
			}
			if err := writeEvent(ctx, conn, rec); err != nil {
				return err
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, rec types.EventRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
