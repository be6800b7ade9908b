package app

import (
	"sync"
	"time"

	"github.com/jwalitptl/medtracker/internal/clock"
)

// DefaultSaveDelay is the quiet period before a change is saved.
const DefaultSaveDelay = 500 * time.Millisecond

// Debouncer runs fn once triggers have stopped for delay. Each trigger restarts the
// timer. Runs never overlap.
type Debouncer struct {
	clock clock.Clock
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	idle    *sync.Cond
	gen     uint64
	timer   clock.Timer
	running bool
	stopped bool
}

func NewDebouncer(c clock.Clock, delay time.Duration, fn func()) *Debouncer {
	d := &Debouncer{clock: c, delay: delay, fn: fn}
	d.idle = sync.NewCond(&d.mu)
	return d
}

func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() { d.run(gen) })
}

func (d *Debouncer) run(gen uint64) {
	d.mu.Lock()
	for d.running {
		d.idle.Wait()
	}
	if gen != d.gen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.call()
}

// call runs fn outside the lock. d.mu must be held on entry; it is released on return.
func (d *Debouncer) call() {
	d.running = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.running = false
		d.idle.Broadcast()
		d.mu.Unlock()
	}()
	d.fn()
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Flush waits for a run already in progress, then runs fn now if another run is pending.
// It reports whether it ran fn itself.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	for d.running {
		d.idle.Wait()
	}
	if d.timer == nil {
		d.mu.Unlock()
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	d.call()
	return true
}

// Stop cancels any pending run and ignores later triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
