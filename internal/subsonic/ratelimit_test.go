package subsonic

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSlidingWindow(t *testing.T) {
	t.Run("Admits Up To Limit", func(t *testing.T) {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		w := newSlidingWindow(3, time.Second)
		w.now = func() time.Time { return now }

		for i := range 3 {
			if _, ok := w.reserve(); !ok {
				t.Fatalf("request %d should be admitted", i)
			}
		}

		wait, ok := w.reserve()
		if ok {
			t.Fatal("fourth request should be refused")
		}
		if wait != time.Second {
			t.Errorf("expected to wait a full window, got %v", wait)
		}
		if w.Len() != 3 {
			t.Errorf("expected 3 occupied slots, got %d", w.Len())
		}
	})

	t.Run("Evicts Aged Entries", func(t *testing.T) {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		w := newSlidingWindow(2, time.Second)
		w.now = func() time.Time { return now }

		w.reserve()
		now = now.Add(400 * time.Millisecond)
		w.reserve()

		now = now.Add(300 * time.Millisecond)
		if wait, ok := w.reserve(); ok || wait != 300*time.Millisecond {
			t.Errorf("expected 300ms until the oldest entry expires, got %v, %v", wait, ok)
		}

		now = now.Add(300 * time.Millisecond)
		if _, ok := w.reserve(); !ok {
			t.Error("expected the oldest entry to have aged out")
		}
		if w.Len() != 2 {
			t.Errorf("expected 2 occupied slots, got %d", w.Len())
		}
	})

	t.Run("Wait Honours Context", func(t *testing.T) {
		w := NewSlidingWindow(1)
		if err := w.Wait(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := w.Wait(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected canceled, got %v", err)
		}
	})

	t.Run("Wait Blocks Until Slot Frees", func(t *testing.T) {
		w := newSlidingWindow(1, 100*time.Millisecond)
		start := time.Now()
		for range 3 {
			if err := w.Wait(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
			t.Errorf("expected at least 200ms, took %v", elapsed)
		}
	})

	t.Run("Zero Limit Admits One", func(t *testing.T) {
		if w := NewSlidingWindow(0); w.limit != 1 {
			t.Errorf("expected limit floor of 1, got %d", w.limit)
		}
	})
}
