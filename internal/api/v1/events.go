package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vmunix/vidpull/internal/events"
)

const (
	eventBuffer       = 64
	keepaliveInterval = 15 * time.Second
)

// streamEvents writes bus events as server-sent events. The optional job or
// archive query parameter narrows the stream to one entity.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	var ch <-chan events.Event
	switch q := r.URL.Query(); {
	case q.Get("job") != "":
		ch = s.deps.Bus.SubscribeEntity(events.EntityJob, q.Get("job"), eventBuffer)
	case q.Get("archive") != "":
		ch = s.deps.Bus.SubscribeEntity(events.EntityArchive, q.Get("archive"), eventBuffer)
	default:
		ch = s.deps.Bus.SubscribeAll(eventBuffer)
	}
	defer s.deps.Bus.Unsubscribe(ch)

	rc := http.NewResponseController(w)
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.log.Warn("event stream unsupported", "error", err)
		return
	}

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
		case e, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				s.log.Error("encode event", "type", e.EventType(), "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.EventType(), data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
