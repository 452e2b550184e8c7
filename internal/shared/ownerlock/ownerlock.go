// Package ownerlock serializes units of work per owner within one process.
package ownerlock

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned by TryLock when the owner already has a run in flight.
var ErrBusy = errors.New("operation already in progress for owner")

// Locker hands out one exclusive slot per owner id.
// The zero value is not usable; call New.
type Locker struct {
	mu    sync.Mutex
	slots map[int64]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// New creates an empty Locker.
func New() *Locker {
	return &Locker{slots: make(map[int64]*slot)}
}

// Lock blocks until the owner's slot is free or ctx is done.
// The returned unlock func is safe to call more than once.
func (l *Locker) Lock(ctx context.Context, ownerID int64) (func(), error) {
	s := l.acquire(ownerID)

	select {
	case s.ch <- struct{}{}:
		return l.unlocker(ownerID, s), nil
	case <-ctx.Done():
		l.release(ownerID, s)
		return nil, ctx.Err()
	}
}

// TryLock takes the owner's slot without waiting.
func (l *Locker) TryLock(ownerID int64) (func(), error) {
	s := l.acquire(ownerID)

	select {
	case s.ch <- struct{}{}:
		return l.unlocker(ownerID, s), nil
	default:
		l.release(ownerID, s)
		return nil, ErrBusy
	}
}

func (l *Locker) unlocker(ownerID int64, s *slot) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(ownerID, s)
		})
	}
}

func (l *Locker) acquire(ownerID int64) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[ownerID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[ownerID] = s
	}
	s.refs++
	return s
}

func (l *Locker) release(ownerID int64, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, ownerID)
	}
}
