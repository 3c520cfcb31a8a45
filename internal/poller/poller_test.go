package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls atomic.Int32
}

func (r *countingRefresher) RefreshWindow(string) int {
	r.calls.Add(1)
	return 3
}

func next(t *testing.T, p *Poller) RefreshStatus {
	t.Helper()
	select {
	case st := <-p.Results():
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for refresh")
		return RefreshStatus{}
	}
}

func TestPoller_Ticks(t *testing.T) {
	r := &countingRefresher{}
	p := New(r, 10*time.Millisecond, zerolog.Nop())
	p.Register("acme", nil)
	p.Start()
	defer p.Stop()

	st := next(t, p)
	assert.Equal(t, "acme", st.Tenant)
	assert.Equal(t, RefreshIdle, st.State)
	assert.Equal(t, 3, st.Invalidated)
	assert.False(t, st.LastRefresh.IsZero())

	next(t, p)
	assert.GreaterOrEqual(t, r.calls.Load(), int32(2))
}

func TestPoller_Trigger(t *testing.T) {
	r := &countingRefresher{}
	p := New(r, time.Hour, zerolog.Nop())

	var warmed atomic.Int32
	p.Register("acme", func(context.Context, string) error {
		warmed.Add(1)
		return nil
	})
	p.Register("globex", nil)
	p.Start()
	defer p.Stop()

	p.Trigger("acme")
	st := next(t, p)
	assert.Equal(t, "acme", st.Tenant)
	assert.Equal(t, int32(1), warmed.Load())
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestPoller_WarmError(t *testing.T) {
	p := New(&countingRefresher{}, time.Hour, zerolog.Nop())
	boom := errors.New("boom")
	p.Register("acme", func(context.Context, string) error { return boom })
	p.Start()
	defer p.Stop()

	p.Trigger("acme")
	st := next(t, p)
	assert.Equal(t, RefreshError, st.State)
	assert.ErrorIs(t, st.Error, boom)

	statuses := p.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, RefreshError, statuses[0].State)
}

func TestPoller_StopIsIdempotent(t *testing.T) {
	p := New(&countingRefresher{}, 0, zerolog.Nop())
	assert.Equal(t, DefaultInterval, p.interval)

	p.Register("acme", nil)
	p.Start()
	p.Start()
	p.Stop()
	p.Stop()
}
