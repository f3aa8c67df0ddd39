// Rate limiting for the command endpoint, which mutates world state.
// Requests count against the caller's bearer credential rather than
// the connection address: commands arrive authenticated, and a forged
// forwarding header must not buy a fresh budget.
package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CommandLimiter caps how many commands one caller may issue inside a
// fixed window.
type CommandLimiter struct {
	mu        sync.Mutex
	windows   map[string]*callerWindow
	limit     int
	span      time.Duration
	lastSweep time.Time
}

type callerWindow struct {
	used     int
	openedAt time.Time
}

// NewCommandLimiter allows limit requests per caller per span.
func NewCommandLimiter(limit int, span time.Duration) *CommandLimiter {
	return &CommandLimiter{
		windows: make(map[string]*callerWindow),
		limit:   limit,
		span:    span,
	}
}

// Allow counts one request against the caller, opening a fresh window
// when the previous one has lapsed.
func (l *CommandLimiter) Allow(caller string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.sweep(now)

	w, ok := l.windows[caller]
	if !ok || now.Sub(w.openedAt) >= l.span {
		l.windows[caller] = &callerWindow{used: 1, openedAt: now}
		return true
	}
	if w.used < l.limit {
		w.used++
		return true
	}
	return false
}

// RetryAfter returns whole seconds until the caller's window reopens.
func (l *CommandLimiter) RetryAfter(caller string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[caller]
	if !ok {
		return 0
	}
	left := l.span - time.Since(w.openedAt)
	if left <= 0 {
		return 0
	}
	return int(left.Seconds()) + 1
}

// sweep drops long-stale windows so the map stays bounded. Runs at
// most once per span, under the lock the caller already holds.
func (l *CommandLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.span {
		return
	}
	l.lastSweep = now
	for caller, w := range l.windows {
		if now.Sub(w.openedAt) > 2*l.span {
			delete(l.windows, caller)
		}
	}
}

// callerKey identifies the requester: the bearer credential when one
// is presented, else the connection's remote host.
func callerKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return "token:" + strings.TrimPrefix(auth, "Bearer ")
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return "addr:" + host
	}
	return "addr:" + r.RemoteAddr
}

// limitCommands gates a handler behind the limiter, answering 429 with
// a Retry-After header when the caller is over budget.
func limitCommands(l *CommandLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := callerKey(r)
		if !l.Allow(caller) {
			w.Header().Set("Retry-After", strconv.Itoa(l.RetryAfter(caller)))
			http.Error(w, "command rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
