package subsonic

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter gates every request before it is sent.
type Limiter interface {
	Wait(ctx context.Context) error
}

var (
	_ Limiter = (*SlidingWindow)(nil)
	_ Limiter = (*rate.Limiter)(nil)
)

// SlidingWindow admits at most limit requests in any window-long interval.
//
// Each admitted request records its timestamp. A caller arriving at a full window blocks until the oldest
// timestamp ages out or ctx is done.
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time
	now    func() time.Time
}

// NewSlidingWindow returns a limiter admitting perSecond requests per second.
func NewSlidingWindow(perSecond int) *SlidingWindow {
	return newSlidingWindow(perSecond, time.Second)
}

func newSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:  max(limit, 1),
		window: window,
		stamps: make([]time.Time, 0, max(limit, 1)),
		now:    time.Now,
	}
}

func (w *SlidingWindow) Wait(ctx context.Context) error {
	for {
		wait, ok := w.reserve()
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve records a request if the window has room, or reports how long until the oldest entry expires.
func (w *SlidingWindow) reserve() (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.evict(now)
	if len(w.stamps) < w.limit {
		w.stamps = append(w.stamps, now)
		return 0, true
	}
	return w.stamps[0].Add(w.window).Sub(now), false
}

func (w *SlidingWindow) evict(now time.Time) {
	i := 0
	for i < len(w.stamps) && now.Sub(w.stamps[i]) >= w.window {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// Len reports how many requests currently occupy the window.
func (w *SlidingWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evict(w.now())
	return len(w.stamps)
}
