package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"zone-coverage-backend/internal/domain"
)

// MemoryLocker serializes writers of a zone inside one process. Each zone gets
// a one-slot channel; holding the slot is holding the lock.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[int32]chan struct{}
	wait  time.Duration
}

// NewMemoryLocker gives up after wait; zero waits until ctx is done.
func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	return &MemoryLocker{slots: make(map[int32]chan struct{}), wait: wait}
}

func (l *MemoryLocker) slot(zoneID int32) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[zoneID]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[zoneID] = s
	}
	return s
}

func (l *MemoryLocker) Lock(ctx context.Context, zoneID int32) (func(), error) {
	s := l.slot(zoneID)

	var timeout <-chan time.Time
	if l.wait > 0 {
		t := time.NewTimer(l.wait)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case s <- struct{}{}:
	case <-timeout:
		return nil, fmt.Errorf("zone %d: %w", zoneID, domain.ErrZoneLocked)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() { once.Do(func() { <-s }) }, nil
}

var _ domain.ZoneLocker = (*MemoryLocker)(nil)
