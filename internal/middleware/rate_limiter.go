package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/DanielPaucar/control-coliseo/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ipEntry tracks requests per IP within a fixed window.
type ipEntry struct {
	count     int
	windowEnd time.Time
	mu        sync.Mutex
}

type limiter struct {
	name    string
	limit   int
	window  time.Duration
	message string

	mu      sync.Mutex
	entries map[string]*ipEntry
}

var (
	limiters   []*limiter
	limitersMu sync.Mutex
	purgeOnce  sync.Once
)

func newLimiter(name string, limit int, window time.Duration, message string) *limiter {
	l := &limiter{name: name, limit: limit, window: window, message: message, entries: make(map[string]*ipEntry)}
	limitersMu.Lock()
	limiters = append(limiters, l)
	limitersMu.Unlock()
	purgeOnce.Do(func() { go purgeExpiredEntries() })
	return l
}

// allow counts one hit for ip and returns how long until the window resets
// when the limit is exceeded.
func (l *limiter) allow(ip string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	entry, exists := l.entries[ip]
	if !exists {
		entry = &ipEntry{}
		l.entries[ip] = entry
	}
	l.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if now.After(entry.windowEnd) {
		entry.count = 0
		entry.windowEnd = now.Add(l.window)
	}
	entry.count++
	if entry.count > l.limit {
		return false, entry.windowEnd.Sub(now)
	}
	return true, 0
}

func (l *limiter) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retry := l.allow(c.ClientIP(), time.Now())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(l.message))
			return
		}
		c.Next()
	}
}

// RateLimiter returns a general-purpose per-IP limiter, e.g. 1000 requests
// per minute.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return newLimiter("api", limit, window, "Demasiadas solicitudes. Intente nuevamente en un momento.").handler()
}

// ConfirmationRateLimiter guards the purge endpoints: 5 confirmation
// attempts per minute per IP.
func ConfirmationRateLimiter() gin.HandlerFunc {
	return newLimiter("confirmacion", 5, time.Minute, "Demasiados intentos de confirmación. Intente en 1 minuto.").handler()
}

// ── Purge goroutine ───────────────────────────────────────────────────────────
// Periodically removes expired entries so IPs that never return do not
// accumulate.

const purgeInterval = 5 * time.Minute

func purgeExpiredEntries() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for range ticker.C {
		limitersMu.Lock()
		current := append([]*limiter(nil), limiters...)
		limitersMu.Unlock()
		for _, l := range current {
			if n := l.purge(time.Now()); n > 0 {
				log.Debug().Str("limiter", l.name).Int("entries_purged", n).Msg("rate limiter map purged")
			}
		}
	}
}

func (l *limiter) purge(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	purged := 0
	for ip, entry := range l.entries {
		entry.mu.Lock()
		if now.After(entry.windowEnd) {
			delete(l.entries, ip)
			purged++
		}
		entry.mu.Unlock()
	}
	return purged
}
