// Package jobmgr runs named background jobs that can be cancelled
// individually or all at once on shutdown.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(ctx, func(ev jobmgr.Event) {
//	    log.Info().Str("job", ev.Job).Str("state", string(ev.State)).Msg("job")
//	})
//
//	err := jm.Start("cooldown-pruner", func(ctx context.Context) error {
//	    // do work until ctx is cancelled
//	    return nil
//	})
//
//	// later...
//	_ = jm.Stop("cooldown-pruner")
package jobmgr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// State is a job lifecycle state reported to the Reporter.
type State string

const (
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Event describes a job state change.
type Event struct {
	Job   string
	State State
	Err   error
}

// Reporter receives lifecycle events. It may be nil.
type Reporter func(Event)

type job struct {
	cancel  context.CancelFunc
	started time.Time
	done    chan struct{}
}

// Manager tracks running jobs. It is safe for concurrent use.
type Manager struct {
	parent   context.Context
	mu       sync.Mutex
	jobs     map[string]*job
	reporter Reporter
}

// NewManager creates a Manager whose jobs are children of parent.
func NewManager(parent context.Context, reporter Reporter) *Manager {
	if parent == nil {
		parent = context.Background()
	}
	return &Manager{
		parent:   parent,
		jobs:     make(map[string]*job),
		reporter: reporter,
	}
}

// Start runs fn in its own goroutine. A job with the same name must not be
// running already. The job is forgotten once fn returns.
func (m *Manager) Start(name string, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	if _, exists := m.jobs[name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("job '%s' is already running", name)
	}
	ctx, cancel := context.WithCancel(m.parent)
	j := &job{cancel: cancel, started: time.Now(), done: make(chan struct{})}
	m.jobs[name] = j
	m.mu.Unlock()

	go func() {
		defer close(j.done)
		m.report(Event{Job: name, State: StateRunning})

		err := fn(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			m.report(Event{Job: name, State: StateFailed, Err: err})
		} else {
			m.report(Event{Job: name, State: StateDone})
		}

		m.mu.Lock()
		if m.jobs[name] == j {
			delete(m.jobs, name)
		}
		m.mu.Unlock()
		cancel()
	}()

	return nil
}

// Stop cancels a running job and waits for it to return.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	j, ok := m.jobs[name]
	if ok {
		delete(m.jobs, name)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("job '%s' not running", name)
	}
	j.cancel()
	<-j.done
	return nil
}

// StopAll cancels every job and waits for them.
func (m *Manager) StopAll() {
	for _, name := range m.List() {
		_ = m.Stop(name)
	}
}

// List returns the names of running jobs, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Status returns a human-readable summary, e.g. "Running jobs: a (3m0s), b (1s)".
func (m *Manager) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.jobs) == 0 {
		return "No jobs are running."
	}
	names := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		age := time.Since(m.jobs[n].started).Truncate(time.Second)
		parts = append(parts, fmt.Sprintf("%s (%s)", n, age))
	}
	return "Running jobs: " + strings.Join(parts, ", ")
}

func (m *Manager) report(ev Event) {
	if m.reporter != nil {
		m.reporter(ev)
	}
}
