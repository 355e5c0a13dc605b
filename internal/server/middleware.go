package server

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// observe logs each request and records its metrics.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		duration := time.Since(start)

		s.log.LogRequest(r.Method, r.URL.Path, rec.status, duration)
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(routeLabel(r.URL.Path), strconv.Itoa(rec.status), duration)
		}
	})
}

// recoverPanics turns a handler panic into a 500 with status=error.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.log.Error().Str("path", r.URL.Path).Interface("panic", v).Msg("Handler panicked")
				writeError(w, fmt.Errorf("panic: %v", v))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// limit rejects requests from clients that exceed their rate.
func (s *Server) limit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientIP(r)) {
			if s.metrics != nil {
				s.metrics.HTTPRequestsLimited.Inc()
			}
			w.Header().Set("Retry-After", "1")
			writeStatus(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// routeLabel keeps metric label cardinality bounded.
func routeLabel(path string) string {
	switch path {
	case "/run", "/health", "/documents", "/metrics":
		return path
	}
	return "other"
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ClientLimiter implements per-client rate limiting
type ClientLimiter struct {
	limiters map[string]*clientEntry
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// NewClientLimiter creates a limiter allowing requestsPerSecond per client.
func NewClientLimiter(requestsPerSecond float64, burst int) *ClientLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &ClientLimiter{
		limiters: make(map[string]*clientEntry),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether client may make a request now.
func (l *ClientLimiter) Allow(client string) bool {
	now := l.now()
	e := l.get(client)
	e.lastSeen.Store(now.UnixNano())
	return e.limiter.AllowN(now, 1)
}

// Prune drops clients not seen for longer than idle and returns how many were removed.
func (l *ClientLimiter) Prune(idle time.Duration) int {
	cutoff := l.now().Add(-idle).UnixNano()
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for client, e := range l.limiters {
		if e.lastSeen.Load() < cutoff {
			delete(l.limiters, client)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (l *ClientLimiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}

func (l *ClientLimiter) get(client string) *clientEntry {
	l.mu.RLock()
	e, exists := l.limiters[client]
	l.mu.RUnlock()
	if exists {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, exists := l.limiters[client]; exists {
		return e
	}
	e = &clientEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
	l.limiters[client] = e
	return e
}

// pruneLimiters sweeps idle clients until done is closed.
func (s *Server) pruneLimiters(done <-chan struct{}) {
	ticker := time.NewTicker(limiterIdle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if n := s.limiter.Prune(limiterIdle); n > 0 {
				s.log.Debug().Int("clients", n).Msg("Pruned idle rate limiters")
			}
		}
	}
}
