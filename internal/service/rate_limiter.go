package service

import (
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter limita la frecuencia de llamadas al proxy por clave (IP del cliente).
type RateLimiter interface {
	Allow(key string) bool
}

const memoryLimiterMaxKeys = 10000

type memoryRateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// NewMemoryRateLimiter crea un token bucket por clave; perMinute <= 0 deshabilita el limite.
func NewMemoryRateLimiter(perMinute int) RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &memoryRateLimiter{
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    perMinute,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *memoryRateLimiter) Allow(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= memoryLimiterMaxKeys {
			l.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	return limiter.Allow()
}
