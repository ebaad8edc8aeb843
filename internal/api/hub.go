package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nerrad567/thingsd/internal/infrastructure/logging"
)

// subscriberBufferSize is the per-subscriber outbound payload buffer.
// A subscriber that falls this far behind starts missing broadcasts;
// the next one it receives is still a full snapshot, so it converges.
const subscriberBufferSize = 16

// Subscriber is one registered notification target. The hub owns the
// send side of the channel; receivers drain it until it closes.
type Subscriber struct {
	Token string
	send  chan []byte
}

// Receive returns the channel broadcast payloads arrive on. The
// channel closes when the hub shuts down.
func (s *Subscriber) Receive() <-chan []byte {
	return s.send
}

// Hub tracks open subscriber connections and fans the full current
// resource list out to all of them after every mutation.
//
// Delivery transport (event-stream, one-shot, WebSocket) is the
// handler's concern; the hub only moves payloads into per-subscriber
// channels and never blocks on a slow consumer.
type Hub struct {
	logger      *logging.Logger
	subscribers map[string]*Subscriber
	mu          sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger:      logger,
		subscribers: make(map[string]*Subscriber),
	}
}

// Run blocks until the context is cancelled, then disconnects all
// subscribers so their handler goroutines unwind.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Subscribe registers a new subscriber and returns it. The token is
// unique for the process lifetime.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		Token: uuid.NewString(),
		send:  make(chan []byte, subscriberBufferSize),
	}

	h.mu.Lock()
	h.subscribers[sub.Token] = sub
	h.mu.Unlock()

	h.logger.Debug("subscriber registered", "token", sub.Token, "subscribers", h.SubscriberCount())
	return sub
}

// Unsubscribe removes the subscriber with the given token.
// Only the caller that actually removes the entry closes the send
// channel, preventing double-close panics during shutdown.
func (h *Hub) Unsubscribe(token string) {
	h.mu.Lock()
	sub, existed := h.subscribers[token]
	delete(h.subscribers, token)
	h.mu.Unlock()

	if existed {
		close(sub.send)
	}
	h.logger.Debug("subscriber removed", "token", token, "subscribers", h.SubscriberCount())
}

// Broadcast delivers payload to every registered subscriber.
//
// Fan-out is best-effort: a subscriber with a full buffer is skipped,
// and a subscriber that disappears mid-broadcast is absorbed. The
// snapshot-then-send pattern keeps the hub lock out of the send path.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		sub.trySend(payload)
	}

	if len(subs) > 0 {
		h.logger.Debug("broadcast sent", "recipients", len(subs))
	}
}

// SubscriberCount returns the number of registered subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// closeAll disconnects every subscriber and closes their channels so
// handler goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for token, sub := range h.subscribers {
		close(sub.send)
		delete(h.subscribers, token)
	}
}

// trySend attempts to hand payload to the subscriber.
// It silently handles closed channels (subscriber removed during
// broadcast) and full buffers (slow consumer).
func (s *Subscriber) trySend(payload []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case s.send <- payload:
	default:
		// Subscriber buffer full, skip
	}
}

// handleSubscribe registers the caller with the hub. The Accept
// header selects the delivery mode: text/event-stream keeps the
// connection open and frames every broadcast as an SSE event, anything
// else waits for the next broadcast, delivers it once, and closes.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		s.serveEventStream(w, r)
		return
	}
	s.serveOneShot(w, r)
}

// serveEventStream streams broadcasts until the peer disconnects.
func (s *Server) serveEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeInternalError(w, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub.Token)

	for {
		select {
		case <-r.Context().Done():
			// Peer closed the connection
			return
		case payload, ok := <-sub.Receive():
			if !ok {
				// Hub shut down
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// serveOneShot delivers exactly one broadcast and closes.
func (s *Server) serveOneShot(w http.ResponseWriter, r *http.Request) {
	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub.Token)

	select {
	case <-r.Context().Done():
		return
	case payload, ok := <-sub.Receive():
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(payload) //nolint:errcheck // Best-effort write; peer may be gone
	}
}
