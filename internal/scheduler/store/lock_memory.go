package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"qualify/pkg/platform/clock"
)

type lease struct {
	token   string
	expires time.Time
}

// InMemoryLock is a single-process ownership lock.
type InMemoryLock struct {
	mu     sync.Mutex
	leases map[string]lease
	clock  clock.Clock
}

func NewInMemoryLock(c clock.Clock) *InMemoryLock {
	if c == nil {
		c = clock.System{}
	}
	return &InMemoryLock{leases: make(map[string]lease), clock: c}
}

func (l *InMemoryLock) Acquire(_ context.Context, name string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	if held, ok := l.leases[name]; ok && now.Before(held.expires) {
		return "", false, nil
	}
	token := uuid.NewString()
	l.leases[name] = lease{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

// Release drops the lease only when token still owns it.
func (l *InMemoryLock) Release(_ context.Context, name, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if held, ok := l.leases[name]; ok && held.token == token {
		delete(l.leases, name)
	}
	return nil
}
