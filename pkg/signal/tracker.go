package signal

import (
	"context"
	"sync"
	"time"
)

// maxActivity caps the typing-activity scalar so a burst of keystrokes
// cannot wind it up indefinitely.
const maxActivity = 10.0

// Tracker maintains the two liveness inputs of the signal mapper: a
// typing-activity scalar that rises on keystrokes and decays over time, and
// the current text length. Both keep the visual output alive even when a
// text scores zero emotional hits.
type Tracker struct {
	mu       sync.RWMutex
	activity float64
	textLen  int

	interval time.Duration
	rate     float64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTracker creates a tracker that removes rate (0..1] of the activity per
// interval tick once started.
func NewTracker(interval time.Duration, rate float64) *Tracker {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	if rate <= 0 || rate > 1 {
		rate = 0.08
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		interval: interval,
		rate:     rate,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start launches the decay loop. Call Stop to end it.
func (t *Tracker) Start() {
	go t.decayLoop()
}

// Stop terminates the decay loop and waits for it to exit.
func (t *Tracker) Stop() {
	t.cancel()
	<-t.done
}

func (t *Tracker) decayLoop() {
	defer close(t.done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
			t.mu.Lock()
			t.activity *= 1 - t.rate
			if t.activity < 0.001 {
				t.activity = 0
			}
			t.mu.Unlock()
		}
	}
}

// Bump records one keystroke.
func (t *Tracker) Bump() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activity++
	if t.activity > maxActivity {
		t.activity = maxActivity
	}
}

// SetTextLength records the current input length in runes.
func (t *Tracker) SetTextLength(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n < 0 {
		n = 0
	}
	t.textLen = n
}

// Snapshot returns the current activity scalar and text length.
func (t *Tracker) Snapshot() (activity float64, textLen int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.activity, t.textLen
}
