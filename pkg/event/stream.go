package event

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultHeartbeat = 15 * time.Second
	defaultClientBuf = 8
)

// Stream fans chat events out to connected SSE clients.
type Stream struct {
	heartbeat time.Duration
	clientBuf int
	clients   sync.Map // map[string]*subscriber
}

// NewStream constructs a broadcast-capable SSE stream.
func NewStream() *Stream {
	return &Stream{heartbeat: defaultHeartbeat, clientBuf: defaultClientBuf}
}

// SetHeartbeat sets the per-client heartbeat interval (<=0 disables).
func (s *Stream) SetHeartbeat(d time.Duration) {
	if d <= 0 {
		s.heartbeat = 0
		return
	}
	s.heartbeat = d
}

// ServeHTTP registers the caller as an SSE client and streams events
// until the request context is cancelled.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "event: response does not support streaming", http.StatusInternalServerError)
		return
	}
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")

	client := newSubscriber(s.clientBuf)
	s.clients.Store(client.id, client)
	defer func() {
		// Unregister before closing so a concurrent Send cannot load a
		// subscriber whose queue is about to close.
		s.clients.Delete(client.id)
		client.close()
	}()

	_, _ = io.WriteString(w, ": connected\n\n")
	flusher.Flush()

	var ticker *time.Ticker
	if s.heartbeat > 0 {
		ticker = time.NewTicker(s.heartbeat)
		defer ticker.Stop()
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-client.queue:
			if !ok {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		case <-tickChan(ticker):
			if _, err := fmt.Fprintf(w, ": heartbeat %d\n\n", time.Now().Unix()); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// Send broadcasts one event to every connected client. Slow clients are
// dropped rather than blocking the turn.
func (s *Stream) Send(evt Event) error {
	frame, err := encodeFrame(evt)
	if err != nil {
		return err
	}
	s.clients.Range(func(key, value any) bool {
		client, ok := value.(*subscriber)
		if !ok {
			s.clients.Delete(key)
			return true
		}
		if !client.send(frame) {
			s.clients.Delete(key)
			client.close()
		}
		return true
	})
	return nil
}

// Sink adapts the stream to the controller's event sink.
func (s *Stream) Sink() Sink {
	return func(evt Event) {
		_ = s.Send(evt)
	}
}

func encodeFrame(evt Event) ([]byte, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("event: marshal SSE payload: %w", err)
	}
	return []byte(fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", evt.ID, evt.Type, body)), nil
}

func tickChan(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

type subscriber struct {
	id     string
	mu     sync.Mutex
	queue  chan []byte
	closed bool
}

func newSubscriber(buffer int) *subscriber {
	if buffer < 1 {
		buffer = 1
	}
	return &subscriber{
		id:    uuid.NewString(),
		queue: make(chan []byte, buffer),
	}
}

// send enqueues frame without blocking. It reports false when the
// subscriber is closed or its buffer is full; the queue mutation happens
// under the same lock as close so a send can never hit a closed channel.
func (s *subscriber) send(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.queue <- frame:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.queue)
}
