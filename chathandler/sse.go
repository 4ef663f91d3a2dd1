package chathandler

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/cockroachdb/errors"
)

// Event names sent on the chat stream.
const (
	EventTextDelta  = "text-delta"
	EventToolCall   = "tool-call"
	EventToolResult = "tool-result"
	EventDone       = "done"
	EventError      = "error"
)

// sseWriter serializes server-sent events onto a response writer.
// Writes may come from the streaming callback and the chat loop concurrently.
type sseWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("streaming unsupported by response writer")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &sseWriter{
		w:       w,
		flusher: flusher,
	}, nil
}

// Send writes one event with a JSON payload and flushes it to the client.
func (s *sseWriter) Send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event payload")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write([]byte("event: " + event + "\n")); err != nil {
		return errors.Wrap(err, "failed to write event")
	}
	if _, err := s.w.Write(append(append([]byte("data: "), data...), '\n', '\n')); err != nil {
		return errors.Wrap(err, "failed to write event data")
	}
	s.flusher.Flush()
	return nil
}
