package http

import (
	"fmt"
	"net/http"
	"time"

	applog "skillchisel/internal/log"
)

// handleEvents streams "update" when the client's tracker snapshot changes
// and "session" when its session does. The page script refreshes the tracker
// body on the first and reloads on the second.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	c := s.attach(w, r)
	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentSSE)
	rc := http.NewResponseController(w)

	events, unsubscribe := c.subscribe()
	defer unsubscribe()
	s.countStream(1)
	defer s.countStream(-1)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, "retry: 3000\n\n")
	if err := rc.Flush(); err != nil {
		logger.WarnContext(r.Context(), "Streaming not supported", applog.FieldError, err)
		return
	}
	logger.DebugContext(r.Context(), "Event stream opened", applog.FieldClientID, c.id)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.DebugContext(r.Context(), "Event stream closed by client", applog.FieldClientID, c.id)
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, event)
		case <-heartbeat.C:
			// An open stream counts as activity for the idle TTL.
			s.clients.Get(c.id)
			fmt.Fprint(w, ": keepalive\n\n")
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
