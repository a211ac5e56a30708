package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerRemaining(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	h := &timerHandle{
		duration:  10 * time.Second,
		startedAt: start,
	}

	tests := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{name: "just started", elapsed: 0, want: 10},
		{name: "partial second rounds up", elapsed: 1500 * time.Millisecond, want: 9},
		{name: "whole second", elapsed: 3 * time.Second, want: 7},
		{name: "almost done", elapsed: 9900 * time.Millisecond, want: 1},
		{name: "expired", elapsed: 10 * time.Second, want: 0},
		{name: "past expiry floors at zero", elapsed: 15 * time.Second, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.remaining(start.Add(tt.elapsed)))
		})
	}
}

func TestTimerExpiryEvent(t *testing.T) {
	ts := newTimerSet()
	defer ts.clearAll()

	ts.start("answering", 20*time.Millisecond)

	select {
	case ev := <-ts.events:
		require.True(t, ev.expired)
		assert.Equal(t, "answering", ev.name)
		assert.True(t, ts.current(ev))

		ts.expire(ev)
		assert.False(t, ts.current(ev), "acknowledged expiry must not stay current")
	case <-time.After(time.Second):
		t.Fatal("timer never expired")
	}
}

func TestTimerTicks(t *testing.T) {
	ts := newTimerSet()
	defer ts.clearAll()

	ts.start("answering", 3*time.Second)

	select {
	case ev := <-ts.events:
		require.False(t, ev.expired)
		assert.Equal(t, 2, ev.remaining)
	case <-time.After(2 * time.Second):
		t.Fatal("no tick received")
	}
}

func TestTimerStartReplaces(t *testing.T) {
	ts := newTimerSet()
	defer ts.clearAll()

	ts.start("matching", time.Minute)
	first := ts.active["matching"].gen

	ts.start("matching", time.Minute)
	second := ts.active["matching"].gen

	assert.NotEqual(t, first, second)
	assert.False(t, ts.current(timerEvent{name: "matching", gen: first}), "events from the replaced timer are stale")
	assert.True(t, ts.current(timerEvent{name: "matching", gen: second}))
	assert.Len(t, ts.active, 1)
}

func TestTimerClearIdempotent(t *testing.T) {
	ts := newTimerSet()

	// Clearing a timer that never ran must not panic.
	ts.clear("answering")

	ts.start("answering", time.Minute)
	ts.clear("answering")
	ts.clear("answering")

	assert.Empty(t, ts.active)
}

func TestTimerClearAll(t *testing.T) {
	ts := newTimerSet()

	ts.start("answering", time.Minute)
	ts.start("matching", time.Minute)
	ts.start("grace", time.Minute)

	ts.clearAll()

	assert.Empty(t, ts.active)
}
