/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"
)

// roomAlphabet drops I and O to keep codes unambiguous when read off a
// screen across the room.
const (
	roomAlphabet     = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	roomCodeLength   = 4
	roomCodeAttempts = 64
)

// Registry tracks the single active room. The orchestrator is the only
// writer; the mutex exists so the registry stays safe if the server ever
// grows a second room.
type Registry struct {
	mu        sync.Mutex
	code      string
	createdAt time.Time
	completed bool
	recent    map[string]struct{}
}

func newRegistry() *Registry {
	return &Registry{
		recent: make(map[string]struct{}),
	}
}

// CreateRoom allocates a fresh room code and makes it the active room,
// retiring any previous one. Collisions against active and recently used
// codes are retried a bounded number of times.
func (r *Registry) CreateRoom() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for range roomCodeAttempts {
		code, err := randomRoomCode()
		if err != nil {
			return "", err
		}

		if _, used := r.recent[code]; used || code == r.code {
			continue
		}

		if r.code != "" {
			r.recent[r.code] = struct{}{}
		}

		r.code = code
		r.createdAt = time.Now()
		r.completed = false
		r.recent[code] = struct{}{}

		return code, nil
	}

	return "", ErrCodeExhausted
}

// ValidateRoom reports whether code names the currently active, non-completed
// room. Matching is case-insensitive and ignores surrounding whitespace.
func (r *Registry) ValidateRoom(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.code == "" || r.completed {
		return false
	}

	return strings.EqualFold(strings.TrimSpace(code), r.code)
}

// CurrentRoomCode returns the active room code, or an empty string if no
// room exists.
func (r *Registry) CurrentRoomCode() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.code
}

// CloseRoom marks the active room completed so stale join links stop
// validating.
func (r *Registry) CloseRoom() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.completed = true
}

func randomRoomCode() (string, error) {
	buf := make([]byte, roomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	out := make([]byte, roomCodeLength)
	for i := range out {
		out[i] = roomAlphabet[int(buf[i])%len(roomAlphabet)]
	}

	return string(out), nil
}
