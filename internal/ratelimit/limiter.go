package ratelimit

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Limiter tracks the last time each key consumed its cooldown. State is
// process-local; a restart resets every cooldown.
type Limiter struct {
	mu   sync.Mutex
	last map[string]time.Time
	clk  Clock
}

func NewLimiter(clk Clock) *Limiter {
	if clk == nil {
		clk = RealClock{}
	}

	return &Limiter{
		last: make(map[string]time.Time),
		clk:  clk,
	}
}

// TryConsume returns true and records now unless the key consumed within
// the last window. On refusal the remaining wait is returned and nothing
// is recorded.
func (l *Limiter) TryConsume(key string, window time.Duration) (bool, time.Duration) {
	now := l.clk.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if at, ok := l.last[key]; ok {
		if wait := window - now.Sub(at); wait > 0 {
			return false, wait
		}
	}

	l.last[key] = now
	return true, 0
}

// TryUser consumes the per-user manual-spawn cooldown within a channel.
func (l *Limiter) TryUser(channelId, userId string, window time.Duration) (bool, time.Duration) {
	return l.TryConsume(channelId+":"+userId, window)
}

func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.last, key)
	l.mu.Unlock()
}

func (l *Limiter) Peek(key string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.last[key]
	return t, ok
}
