package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSleepThrottle_FirstCallImmediate(t *testing.T) {
	th := NewSleepThrottle(time.Hour)

	start := time.Now()
	if err := th.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first Wait() took %v, want immediate", elapsed)
	}
}

func TestSleepThrottle_SpacesItems(t *testing.T) {
	th := NewSleepThrottle(20 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := th.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("3 Wait() calls took %v, want >= 40ms", elapsed)
	}
}

func TestSleepThrottle_Canceled(t *testing.T) {
	th := NewSleepThrottle(time.Hour)
	_ = th.Wait(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if err := th.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
}

func TestSleepThrottle_AlreadyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewSleepThrottle(0).Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
}

func TestRateThrottle_SharedAcrossWorkers(t *testing.T) {
	th := NewRateThrottle(15 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := th.Wait(ctx); err != nil {
				t.Errorf("Wait() error = %v", err)
			}
		}()
	}
	wg.Wait()

	// burst of 1: the 4th slot is granted no earlier than 3 intervals in
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("4 concurrent Wait() calls took %v, want >= 40ms", elapsed)
	}
}

func TestRateThrottle_ZeroIntervalUnlimited(t *testing.T) {
	th := NewRateThrottle(0)
	for i := 0; i < 100; i++ {
		if err := th.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
}
