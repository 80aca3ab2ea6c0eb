// Package schedule coalesces bursts of requests into single trailing-edge
// runs.
package schedule

import (
	"context"
	"sync"
	"time"
)

// Debouncer runs fn once a burst of Trigger calls has been quiet for delay.
//
// Values passed to Trigger during one burst are folded together with merge;
// with a nil merge the last value wins. A Trigger also cancels the context
// of a run already in progress, so a superseded run can abandon work it has
// not started yet. fn is never run concurrently with itself.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(ctx context.Context, v T)
	merge func(prev, next T) T

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	value   T
	cancel  context.CancelFunc
	runGen  uint64
	running chan struct{}
	stopped bool

	runMu sync.Mutex
	wg    sync.WaitGroup
}

// NewDebouncer creates a debouncer. merge may be nil.
func NewDebouncer[T any](delay time.Duration, fn func(ctx context.Context, v T), merge func(prev, next T) T) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fn: fn, merge: merge}
}

// Trigger schedules a run delay from now, replacing any earlier schedule.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if d.pending && d.merge != nil {
		v = d.merge(d.value, v)
	}
	d.value = v
	d.pending = true

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Pending reports whether a run is scheduled but has not started.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Flush runs a pending call immediately on the calling goroutine and
// reports whether there was one. With nothing pending, Flush still waits for
// a run the timer has already started, so it returns only once every
// earlier Trigger has been handled. Flush must not be called from fn.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return false
	}
	if !d.pending {
		running := d.running
		d.mu.Unlock()
		if running != nil {
			<-running
		}
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.mu.Unlock()
	return d.run(gen)
}

// Cancel drops any pending call and cancels the context of a run in
// progress without waiting for it. Later Triggers schedule as usual.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	var zero T
	d.value = zero
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// Stop drops any pending call, cancels a run in progress and waits for it
// to return. Later Triggers are ignored. Stop must not be called from fn.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.run(gen)
}

func (d *Debouncer[T]) run(gen uint64) bool {
	d.mu.Lock()
	if d.stopped || !d.pending || gen != d.gen {
		d.mu.Unlock()
		return false
	}
	v := d.value
	var zero T
	d.value = zero
	d.pending = false

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	d.cancel = cancel
	d.runGen = gen
	d.running = done
	d.wg.Add(1)
	d.mu.Unlock()

	defer d.wg.Done()
	defer func() {
		cancel()
		d.mu.Lock()
		if d.runGen == gen {
			d.cancel = nil
		}
		if d.running == done {
			d.running = nil
		}
		d.mu.Unlock()
		close(done)
	}()

	d.runMu.Lock()
	defer d.runMu.Unlock()
	d.fn(ctx, v)
	return true
}
