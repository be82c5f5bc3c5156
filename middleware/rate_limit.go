package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/legalclear/backend/pkg/logger"
)

// RateLimiter counts requests per client in fixed windows.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientWindow
	rate      int           // requests per window
	window    time.Duration // window length
	lastSweep time.Time
}

type clientWindow struct {
	count   int
	started time.Time
}

func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		clients:   make(map[string]*clientWindow),
		rate:      rate,
		window:    window,
		lastSweep: time.Now(),
	}
}

// Allow records one request for key and reports whether it fits in the
// current window.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	// Drop expired windows once per window length so idle clients don't
	// accumulate forever
	if now.Sub(l.lastSweep) > l.window {
		for k, w := range l.clients {
			if now.Sub(w.started) > l.window {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	w, ok := l.clients[key]
	if !ok || now.Sub(w.started) > l.window {
		l.clients[key] = &clientWindow{count: 1, started: now}
		return true
	}
	if w.count >= l.rate {
		return false
	}
	w.count++
	return true
}

// RateLimit rejects clients exceeding rate requests per window. Authenticated
// requests are keyed by username so shared NATs don't pool into one bucket;
// anonymous requests (including login attempts) fall back to the client IP.
func RateLimit(rate int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(rate, window)

	return func(c *gin.Context) {
		key := GetUsername(c)
		if key == "" {
			key = c.ClientIP()
		}

		if !limiter.Allow(key) {
			logger.Warn(c.Request.Context(), "rate limit exceeded",
				"client", key,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
