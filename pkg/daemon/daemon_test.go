package daemon

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/taskplan/pkg/errors"
)

func TestSchedule_InvalidSpec(t *testing.T) {
	d := New(zerolog.Nop())
	err := d.Schedule(t.Context(), "plan", "not a cron spec", func(context.Context) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfigInvalid))
	assert.True(t, d.Next("plan").IsZero())
}

func TestServe_RunsScheduledJob(t *testing.T) {
	d := New(zerolog.Nop())
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var runs atomic.Int32
	require.NoError(t, d.Schedule(ctx, "sweep", "@every 1s", func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	done := make(chan error, 1)
	go func() { done <- d.Serve(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() > 0 }, 5*time.Second, 20*time.Millisecond)
	assert.False(t, d.Next("sweep").IsZero())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestRun_Serialises(t *testing.T) {
	d := New(zerolog.Nop())
	var active, peak atomic.Int32
	job := func(context.Context) error {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return errors.New("boom")
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Run(t.Context(), "plan", job)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak.Load())
}

func TestRun_SkipsAfterCancel(t *testing.T) {
	d := New(zerolog.Nop())
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	called := false
	d.Run(ctx, "plan", func(context.Context) error { called = true; return nil })
	assert.False(t, called)
}
