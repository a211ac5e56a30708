/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"time"
)

// Timer names double as the broadcast phase labels for timer_update events.
const (
	timerThemeSelect = "theme_select"
	timerAnswering   = "answering"
	timerMatching    = "matching"
	timerRoundEnd    = "round_end"
	timerReveal      = "reveal"
	timerGrace       = "grace"
)

// timerEvent is delivered into the orchestrator loop. Ticks carry the
// remaining whole seconds, floored at zero; the final event has expired set.
type timerEvent struct {
	name      string
	gen       uint64
	expired   bool
	remaining int
}

type timerHandle struct {
	name      string
	gen       uint64
	duration  time.Duration
	startedAt time.Time
	stop      chan struct{}
}

// timerSet runs the named countdown timers for a room. Each active timer is
// a single goroutine producing one tick per second plus a final expiry
// event, all funneled through the same channel the orchestrator drains.
// State is only touched from the orchestrator loop, so no locking.
type timerSet struct {
	events chan timerEvent
	active map[string]*timerHandle
	gen    uint64
}

func newTimerSet() *timerSet {
	return &timerSet{
		events: make(chan timerEvent, 64),
		active: make(map[string]*timerHandle),
	}
}

// start begins a countdown, replacing any running timer of the same name.
func (ts *timerSet) start(name string, d time.Duration) {
	ts.clear(name)

	ts.gen++
	h := &timerHandle{
		name:      name,
		gen:       ts.gen,
		duration:  d,
		startedAt: time.Now(),
		stop:      make(chan struct{}),
	}
	ts.active[name] = h

	go h.run(ts.events)
}

// clear cancels a timer's tick and expiry schedules. Safe to call when no
// timer of that name is running.
func (ts *timerSet) clear(name string) {
	if h, ok := ts.active[name]; ok {
		close(h.stop)
		delete(ts.active, name)
	}
}

// clearAll is called on every phase exit so a stale timer can never fire
// into the wrong phase.
func (ts *timerSet) clearAll() {
	for name := range ts.active {
		ts.clear(name)
	}
}

// current reports whether ev belongs to the timer currently registered under
// its name. Events from replaced or cleared timers are stale.
func (ts *timerSet) current(ev timerEvent) bool {
	h, ok := ts.active[ev.name]
	return ok && h.gen == ev.gen
}

// expire acknowledges an expiry event, removing the finished handle.
func (ts *timerSet) expire(ev timerEvent) {
	if h, ok := ts.active[ev.name]; ok && h.gen == ev.gen {
		delete(ts.active, ev.name)
	}
}

func (h *timerHandle) run(events chan<- timerEvent) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	expiry := time.NewTimer(h.duration)
	defer expiry.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			events <- timerEvent{
				name:      h.name,
				gen:       h.gen,
				remaining: h.remaining(time.Now()),
			}
		case <-expiry.C:
			events <- timerEvent{
				name:    h.name,
				gen:     h.gen,
				expired: true,
			}
			return
		}
	}
}

// remaining is the whole seconds left, rounded up, never negative.
func (h *timerHandle) remaining(now time.Time) int {
	left := h.duration - now.Sub(h.startedAt)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}
