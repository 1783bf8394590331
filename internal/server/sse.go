package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

var errNoStreaming = errors.New("response writer does not support streaming")

// eventStream writes numbered Server-Sent Events. Progress can arrive from
// several pipeline goroutines, so sends are serialized.
type eventStream struct {
	mu    sync.Mutex
	w     http.ResponseWriter
	flush http.Flusher
	seq   int
}

func openEventStream(w http.ResponseWriter) (*eventStream, error) {
	flush, ok := w.(http.Flusher)
	if !ok {
		return nil, errNoStreaming
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	return &eventStream{w: w, flush: flush}, nil
}

// send emits one event with a JSON payload.
func (s *eventStream) send(event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", s.seq, event, body); err != nil {
		return err
	}
	s.flush.Flush()
	return nil
}

// fail ends the stream with an error event.
func (s *eventStream) fail(err error) error {
	return s.send("error", map[string]string{"error": err.Error()})
}

// done ends the stream with the final result.
func (s *eventStream) done(result any) error {
	return s.send("complete", result)
}
