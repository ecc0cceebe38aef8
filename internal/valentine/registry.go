package valentine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/containerd/errdefs"
)

// RegistryOptions configures the machines a Registry creates.
type RegistryOptions struct {
	Scheduler Scheduler
	Tick      time.Duration
	Content   *Content

	// NewSink builds the audit sink for a new session. Nil disables auditing.
	NewSink func(key string) Sink
	// NewRandom builds the random source for a new session. Nil selects a
	// time-seeded source per session.
	NewRandom func() Random
	// Observer receives every snapshot of every session.
	Observer func(key string, snap Snapshot)

	Now func() time.Time
}

type entry struct {
	machine  *Machine
	lastSeen time.Time
}

// Registry holds the live sessions, keyed by visitor and tab.
type Registry struct {
	opts RegistryOptions

	mu       sync.Mutex
	sessions map[string]*entry

	// drains tracks closed sessions whose sinks are still writing.
	drains sync.WaitGroup
}

// NewRegistry creates an empty registry.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		opts:     opts,
		sessions: make(map[string]*entry),
	}
}

// Open returns the session for key, creating it in INTRO if needed.
// A new session is announced to the observer so watchers of key drop the
// session it replaces.
func (r *Registry) Open(key string) *Machine {
	r.mu.Lock()
	if e, ok := r.sessions[key]; ok {
		e.lastSeen = r.opts.Now()
		r.mu.Unlock()
		return e.machine
	}

	m := New(r.machineOptions(key))
	r.sessions[key] = &entry{machine: m, lastSeen: r.opts.Now()}
	r.mu.Unlock()

	if observe := r.opts.Observer; observe != nil {
		observe(key, m.Snapshot())
	}
	return m
}

// Get returns the session for key and marks it as seen.
func (r *Registry) Get(key string) (*Machine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[key]
	if !ok {
		return nil, fmt.Errorf("no session for %q: %w", key, errdefs.ErrNotFound)
	}
	e.lastSeen = r.opts.Now()
	return e.machine, nil
}

// Remove closes and forgets the session for key. It reports whether a
// session existed.
func (r *Registry) Remove(key string) bool {
	r.mu.Lock()
	e, ok := r.sessions[key]
	delete(r.sessions, key)
	r.mu.Unlock()

	if ok {
		r.retire(e.machine)
	}
	return ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes every session not seen within ttl and returns their keys.
func (r *Registry) Sweep(ttl time.Duration) []string {
	cutoff := r.opts.Now().Add(-ttl)

	r.mu.Lock()
	var keys []string
	var idle []*Machine
	for key, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			keys = append(keys, key)
			idle = append(idle, e.machine)
			delete(r.sessions, key)
		}
	}
	r.mu.Unlock()

	for _, m := range idle {
		r.retire(m)
	}
	return keys
}

// CloseAll closes every session. Their sinks keep draining; use Wait to
// block until they are done.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range all {
		r.retire(e.machine)
	}
}

// Wait blocks until the sinks of every closed session have drained, or
// until ctx is done.
func (r *Registry) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.drains.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for session sinks: %w", ctx.Err())
	}
}

// retire closes m and lets its sink drain in the background, so callers
// never wait on storage.
func (r *Registry) retire(m *Machine) {
	m.Close()
	r.drains.Add(1)
	go func() {
		defer r.drains.Done()
		_ = m.Wait(context.Background())
	}()
}

func (r *Registry) machineOptions(key string) Options {
	opts := Options{
		Scheduler: r.opts.Scheduler,
		Tick:      r.opts.Tick,
		Content:   r.opts.Content,
	}
	if r.opts.NewSink != nil {
		opts.Sink = r.opts.NewSink(key)
	}
	if r.opts.NewRandom != nil {
		opts.Random = r.opts.NewRandom()
	}
	if observe := r.opts.Observer; observe != nil {
		opts.Observer = func(snap Snapshot) { observe(key, snap) }
	}
	return opts
}
