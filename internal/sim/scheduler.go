package sim

import (
	"context"
	"sync"
	"time"
)

// TickFunc is a frame callback receiving the frame timestamp.
type TickFunc func(now time.Time)

// Scheduler delivers one frame callback per request, like a display refresh hook.
// A callback that wants another frame requests it again.
type Scheduler interface {
	RequestTick(fn TickFunc)
	Cancel()
}

// ManualScheduler holds at most one pending tick until Fire is called. It
// drives headless runs and the terminal UI on virtual or tea.Tick time.
type ManualScheduler struct {
	pending TickFunc
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (m *ManualScheduler) RequestTick(fn TickFunc) { m.pending = fn }

func (m *ManualScheduler) Cancel() { m.pending = nil }

func (m *ManualScheduler) Pending() bool { return m.pending != nil }

// Fire runs the pending callback, if any, and reports whether one ran.
func (m *ManualScheduler) Fire(now time.Time) bool {
	fn := m.pending
	if fn == nil {
		return false
	}
	m.pending = nil
	fn(now)
	return true
}

// TickerScheduler runs frames from a wall-clock ticker on the goroutine that
// calls Run. Everything touching the simulation from other goroutines must
// go through Do so the frame goroutine stays the only writer.
type TickerScheduler struct {
	interval time.Duration
	cmds     chan func()

	mu      sync.Mutex
	pending TickFunc
}

func NewTickerScheduler(fps int) *TickerScheduler {
	if fps <= 0 {
		fps = 60
	}
	return &TickerScheduler{
		interval: time.Second / time.Duration(fps),
		cmds:     make(chan func()),
	}
}

func (t *TickerScheduler) RequestTick(fn TickFunc) {
	t.mu.Lock()
	t.pending = fn
	t.mu.Unlock()
}

func (t *TickerScheduler) Cancel() {
	t.mu.Lock()
	t.pending = nil
	t.mu.Unlock()
}

func (t *TickerScheduler) Interval() time.Duration { return t.interval }

// Run blocks until ctx is done, interleaving frames and queued commands.
func (t *TickerScheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-t.cmds:
			fn()
		case now := <-ticker.C:
			t.mu.Lock()
			fn := t.pending
			t.pending = nil
			t.mu.Unlock()
			if fn != nil {
				fn(now)
			}
		}
	}
}

// Do runs fn on the frame goroutine between frames and waits for it.
func (t *TickerScheduler) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	cmd := func() {
		defer close(done)
		fn()
	}

	select {
	case t.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
