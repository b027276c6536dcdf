package middleware

import (
	"net/http"
	"sync"
	"time"
)

const (
	confirmCleanupPeriod = 5 * time.Minute
)

type confirmAttempt struct {
	count       int
	windowStart time.Time
}

// ConfirmRateLimiter caps pairing confirmation attempts per client IP.
// This sits in front of the registry's own lockout: it bounds request
// volume, while the lockout handles wrong PINs.
type ConfirmRateLimiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	attempts    map[string]*confirmAttempt
	lastCleanup time.Time
}

func NewConfirmRateLimiter(limit int, window time.Duration) *ConfirmRateLimiter {
	return &ConfirmRateLimiter{
		limit:       limit,
		window:      window,
		attempts:    make(map[string]*confirmAttempt),
		lastCleanup: time.Now(),
	}
}

func (l *ConfirmRateLimiter) cleanup() {
	now := time.Now()
	if now.Sub(l.lastCleanup) < confirmCleanupPeriod {
		return
	}
	l.lastCleanup = now

	for ip, attempt := range l.attempts {
		if now.Sub(attempt.windowStart) > l.window {
			delete(l.attempts, ip)
		}
	}
}

func (l *ConfirmRateLimiter) isAllowed(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cleanup()

	now := time.Now()
	attempt, exists := l.attempts[ip]

	if !exists || now.Sub(attempt.windowStart) > l.window {
		l.attempts[ip] = &confirmAttempt{count: 1, windowStart: now}
		return true
	}

	if attempt.count >= l.limit {
		return false
	}
	attempt.count++
	return true
}

func (l *ConfirmRateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.isAllowed(r.RemoteAddr) {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Too many pairing attempts. Please try again later.",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
