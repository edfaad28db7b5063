// Package ratelimit throttles ingress submissions with a token bucket.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter bounds submissions per client and globally. A zero per-minute
// limit disables throttling.
type Limiter struct {
	perMinute int
	global    *rate.Limiter

	mu      sync.Mutex
	clients map[string]*rate.Limiter
}

// NewLimiter creates a Limiter allowing perMinute submissions per client
// and 4x that globally. perMinute <= 0 means unlimited.
func NewLimiter(perMinute int) *Limiter {
	l := &Limiter{
		perMinute: perMinute,
		clients:   make(map[string]*rate.Limiter),
	}
	if perMinute > 0 {
		l.global = rate.NewLimiter(rate.Limit(float64(perMinute)*4/60), perMinute*4)
	}
	return l
}

// Allow reports whether clientID may submit now.
func (l *Limiter) Allow(clientID string) bool {
	if l.perMinute <= 0 {
		return true
	}
	if !l.global.Allow() {
		return false
	}
	return l.client(clientID).Allow()
}

func (l *Limiter) client(id string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rl, ok := l.clients[id]; ok {
		return rl
	}
	rl := rate.NewLimiter(rate.Limit(float64(l.perMinute)/60), l.perMinute)
	l.clients[id] = rl
	return rl
}
