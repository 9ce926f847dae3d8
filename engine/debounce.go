package engine

import "time"

// debouncer owns at most one pending timer. Arming always stops and
// replaces the pending one, so only the last arm in a burst fires.
//
// Each arm gets a generation number. The callback receives it, and the
// engine drops firings whose generation is no longer current: a timer that
// fired just before being replaced cannot cause a second fetch.
type debouncer struct {
	clock Clock
	delay time.Duration
	timer Timer
	gen   uint64
}

func newDebouncer(clock Clock, delay time.Duration) *debouncer {
	return &debouncer{clock: clock, delay: delay}
}

// Arm replaces any pending timer with a new one calling f(gen) after the
// delay.
func (d *debouncer) Arm(f func(gen uint64)) {
	d.Stop()
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() { f(gen) })
}

// Stop cancels the pending timer. Reports whether one was pending.
func (d *debouncer) Stop() bool {
	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	d.gen++
	return stopped
}

// Current reports whether gen belongs to the pending timer, and consumes it.
func (d *debouncer) Current(gen uint64) bool {
	if d.timer == nil || gen != d.gen {
		return false
	}
	d.timer = nil
	return true
}
