package app

import (
	"context"
	"sync"
	"time"
)

// localCooldown is a process-local fallback for the fee-sync cooldown
// when Redis is not configured. It does not coordinate across replicas.
type localCooldown struct {
	mu     sync.Mutex
	expiry map[string]time.Time
}

func newLocalCooldown() *localCooldown {
	return &localCooldown{expiry: make(map[string]time.Time)}
}

func (l *localCooldown) AcquireCooldown(_ context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if until, ok := l.expiry[name]; ok && time.Now().Before(until) {
		return false, nil
	}
	l.expiry[name] = time.Now().Add(ttl)
	return true, nil
}

func (l *localCooldown) ReleaseCooldown(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.expiry, name)
	return nil
}
