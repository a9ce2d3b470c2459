package memory

import (
	"context"
	"sync"

	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

// KeyedLocker serializes work per key inside one process.
// Different keys never block each other. Idle keys are released.
type KeyedLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewKeyedLocker creates a new KeyedLocker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{slots: make(map[string]*slot)}
}

// Lock blocks until key is free or ctx is done. The returned context is
// cancelled once the lock is released; an in-process lock is never lost.
func (l *KeyedLocker) Lock(ctx context.Context, key string) (context.Context, func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, s, false)
		return nil, nil, shared.WrapError("lock", "Acquire", shared.ErrLockNotAcquired, "lock wait cancelled", ctx.Err())
	}

	held, cancel := context.WithCancel(ctx)
	var once sync.Once
	return held, func() {
		once.Do(func() {
			cancel()
			l.release(key, s, true)
		})
	}, nil
}

func (l *KeyedLocker) release(key string, s *slot, held bool) {
	if held {
		<-s.ch
	}
	l.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}
