// Package limiter implements process-local sliding-window rate limiting with
// temporary lockouts. Keys are free-form strings such as "platform:tiktok" or
// "oauth:<ip>"; state lives in memory and expired keys are evicted lazily on
// next access.
package limiter

import (
	"sync"
	"time"
)

// Config describes the policy for one call site.
type Config struct {
	Max    int           // attempts allowed inside Window
	Window time.Duration // sliding window length
	Block  time.Duration // lockout applied after Max is exceeded
}

// Result reports a single Check decision.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration // set when Allowed is false
}

type entry struct {
	count        int
	windowStart  time.Time
	blockedUntil time.Time
	expiresAt    time.Time // past this instant the entry carries no state
}

// Memory is an in-memory limiter shared across goroutines. Each key's
// read-then-write is atomic under the map lock.
type Memory struct {
	mu    sync.Mutex
	keys  map[string]*entry
	nowFn func() time.Time
}

// New constructs an empty limiter.
func New() *Memory {
	return &Memory{keys: make(map[string]*entry), nowFn: time.Now}
}

// Check records one attempt for key and reports whether it is allowed.
// Exceeding cfg.Max inside the window enters a blocked state of cfg.Block
// during which every call is rejected regardless of window expiry. After the
// block elapses the window resets and counting restarts from this attempt.
func (m *Memory) Check(key string, cfg Config) Result {
	now := m.nowFn()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.scavenge(now)

	e, ok := m.keys[key]
	if ok && now.After(e.expiresAt) {
		// Window and any block have lapsed; drop the entry and count from
		// scratch.
		delete(m.keys, key)
		ok = false
	}
	if !ok {
		m.keys[key] = &entry{count: 1, windowStart: now, expiresAt: now.Add(cfg.Window)}
		return Result{Allowed: true}
	}

	if !e.blockedUntil.IsZero() {
		if now.Before(e.blockedUntil) {
			return Result{Allowed: false, RetryAfter: e.blockedUntil.Sub(now)}
		}
		// Block elapsed: full reset, this attempt counts as the first.
		e.count = 1
		e.windowStart = now
		e.blockedUntil = time.Time{}
		e.expiresAt = now.Add(cfg.Window)
		return Result{Allowed: true}
	}

	if now.Sub(e.windowStart) > cfg.Window {
		e.count = 1
		e.windowStart = now
		e.expiresAt = now.Add(cfg.Window)
		return Result{Allowed: true}
	}

	e.count++
	if e.count > cfg.Max {
		e.blockedUntil = now.Add(cfg.Block)
		e.expiresAt = e.blockedUntil
		return Result{Allowed: false, RetryAfter: cfg.Block}
	}
	return Result{Allowed: true}
}

// scavengeLimit bounds the eviction work any single Check performs.
const scavengeLimit = 8

// scavenge drops a handful of lapsed entries. Go map iteration starts at a
// varying position, so repeated checks reclaim every dead key over time
// without a background sweep. Caller holds mu.
func (m *Memory) scavenge(now time.Time) {
	scanned := 0
	for k, e := range m.keys {
		if now.After(e.expiresAt) {
			delete(m.keys, k)
		}
		scanned++
		if scanned >= scavengeLimit {
			return
		}
	}
}

// Len reports the number of tracked keys (diagnostics).
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}
