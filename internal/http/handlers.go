package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"skillchisel/internal/gate"
	applog "skillchisel/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.store == nil {
		checks["store"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else if err := s.store.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	checks["clients"] = map[string]interface{}{
		"entries": s.clients.Size(),
		"status":  "ok",
	}
	if s.hub != nil {
		checks["live_query"] = map[string]interface{}{
			"subscribers": s.hub.Subscribers(),
			"status":      "ok",
		}
	}
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.signInRateLimiter.ActiveClients(),
		"status":         "ok",
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(response)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.signInRateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	subscribers := 0
	if s.hub != nil {
		subscribers = s.hub.Subscribers()
	}

	w.WriteHeader(http.StatusOK)

	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	writeMetric(w, "http_response_time_avg_microseconds", "gauge", "Average response time", traceMetrics.AverageResponseTime)
	writeMetric(w, "skills_created_total", "counter", "Skills created through the tracker", atomic.LoadInt64(&s.appMetrics.skillsCreated))
	writeMetric(w, "entries_added_total", "counter", "Practice entries appended", atomic.LoadInt64(&s.appMetrics.entriesAdded))
	writeMetric(w, "skills_deleted_total", "counter", "Skills deleted", atomic.LoadInt64(&s.appMetrics.skillsDeleted))
	writeMetric(w, "sign_ins_total", "counter", "Successful sign-ins and registrations", atomic.LoadInt64(&s.appMetrics.signIns))
	writeMetric(w, "sign_in_failures_total", "counter", "Rejected sign-in attempts", atomic.LoadInt64(&s.appMetrics.signInFailures))
	writeMetric(w, "rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	writeMetric(w, "active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", int64(s.signInRateLimiter.ActiveClients()))
	writeMetric(w, "suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	writeMetric(w, "tracked_clients", "gauge", "Browser clients held in the registry", int64(s.clients.Size()))
	writeMetric(w, "live_query_subscribers", "gauge", "Open live-query subscriptions", int64(subscribers))
	writeMetric(w, "sse_streams", "gauge", "Open server-sent event streams", atomic.LoadInt64(&s.appMetrics.sseStreams))

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n\n", time.Since(s.appMetrics.uptime).Seconds())
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}

// handleIndex renders whatever the session gate currently shows.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	c := s.attach(w, r)
	state, _ := c.gate.State()

	switch state {
	case gate.Authenticated:
		v, err := c.trackerView()
		if err != nil {
			break
		}
		s.render(w, r, nil, "tracker_page", formData{Model: v.Model()})
		return
	case gate.Anonymous:
		s.render(w, r, nil, "signin_page", s.signinData(c.signinForm()))
		return
	}

	applog.FromContext(r.Context()).DebugContext(r.Context(), "Session not yet known",
		applog.FieldClientID, c.id)
	s.render(w, r, nil, "loading_page", loadingPage{PollSeconds: 2})
}
