package jobmgr

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) report(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) states(job string) []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []State
	for _, ev := range r.events {
		if ev.Job == job {
			out = append(out, ev.State)
		}
	}
	return out
}

func TestStartRejectsDuplicate(t *testing.T) {
	jm := NewManager(context.Background(), nil)
	block := func(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }

	require.NoError(t, jm.Start("a", block))
	require.Error(t, jm.Start("a", block))
	assert.Equal(t, []string{"a"}, jm.List())
	assert.Contains(t, jm.Status(), "Running jobs: a")

	require.NoError(t, jm.Stop("a"))
	assert.Empty(t, jm.List())
	assert.Equal(t, "No jobs are running.", jm.Status())
}

func TestStopUnknown(t *testing.T) {
	jm := NewManager(context.Background(), nil)
	require.Error(t, jm.Stop("nope"))
}

func TestReporterSeesFailure(t *testing.T) {
	rec := &recorder{}
	jm := NewManager(context.Background(), rec.report)

	require.NoError(t, jm.Start("boom", func(ctx context.Context) error {
		return errors.New("kaput")
	}))

	require.Eventually(t, func() bool {
		return len(rec.states("boom")) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []State{StateRunning, StateFailed}, rec.states("boom"))
	assert.Empty(t, jm.List())
}

func TestParentCancelStopsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	jm := NewManager(ctx, rec.report)

	require.NoError(t, jm.Start("loop", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	cancel()

	require.Eventually(t, func() bool {
		return len(jm.List()) == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []State{StateRunning, StateDone}, rec.states("loop"))
}
