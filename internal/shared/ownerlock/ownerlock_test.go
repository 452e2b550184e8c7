package ownerlock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTryLock_Busy(t *testing.T) {
	l := New()

	unlock, err := l.TryLock(1)
	if err != nil {
		t.Fatalf("TryLock() failed: %v", err)
	}

	if _, err := l.TryLock(1); !errors.Is(err, ErrBusy) {
		t.Errorf("TryLock() second call error = %v, want %v", err, ErrBusy)
	}

	// Different owners never contend
	unlockOther, err := l.TryLock(2)
	if err != nil {
		t.Fatalf("TryLock() other owner failed: %v", err)
	}
	unlockOther()

	unlock()
	unlock() // idempotent

	again, err := l.TryLock(1)
	if err != nil {
		t.Fatalf("TryLock() after unlock failed: %v", err)
	}
	again()

	if len(l.slots) != 0 {
		t.Errorf("slots = %d after all unlocks, want 0", len(l.slots))
	}
}

func TestLock_ContextCancelled(t *testing.T) {
	l := New()

	unlock, _ := l.Lock(context.Background(), 7)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := l.Lock(ctx, 7); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Lock() error = %v, want deadline exceeded", err)
	}
}

func TestLock_Serializes(t *testing.T) {
	l := New()

	var inFlight, maxInFlight int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), 3)
			if err != nil {
				t.Errorf("Lock() failed: %v", err)
				return
			}
			defer unlock()

			n := atomic.AddInt32(&inFlight, 1)
			for {
				m := atomic.LoadInt32(&maxInFlight)
				if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
		}()
	}
	wg.Wait()

	if maxInFlight != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxInFlight)
	}
}
