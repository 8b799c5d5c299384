package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alwanly/detect-probe/pkg/logger"
)

func TestPoller_RepollsImmediatelyWhenMore(t *testing.T) {
	p := NewPoller(logger.NewNop(), Config{Interval: time.Hour})

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Run(context.Background(), func(ctx context.Context) bool {
			calls++
			if calls == 3 {
				_ = p.Stop()
			}
			return true
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("poller slept although fetch reported more work")
	}
	assert.Equal(t, 3, calls)
}

func TestPoller_SleepsBetweenIdleFetches(t *testing.T) {
	p := NewPoller(logger.NewNop(), Config{Interval: 50 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stamps []time.Time
	err := p.Run(ctx, func(ctx context.Context) bool {
		stamps = append(stamps, time.Now())
		if len(stamps) == 3 {
			cancel()
		}
		return false
	})

	assert.True(t, errors.Is(err, context.Canceled))
	require.Len(t, stamps, 3)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 50*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 50*time.Millisecond)
}

func TestPoller_StopInterruptsSleep(t *testing.T) {
	p := NewPoller(logger.NewNop(), Config{Interval: time.Hour})

	done := make(chan error, 1)
	go func() {
		done <- p.Run(context.Background(), func(ctx context.Context) bool { return false })
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPoller_RecoversFromPanic(t *testing.T) {
	p := NewPoller(logger.NewNop(), Config{Interval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	_ = p.Run(ctx, func(ctx context.Context) bool {
		calls++
		if calls == 1 {
			panic("boom")
		}
		cancel()
		return false
	})

	assert.Equal(t, 2, calls)
}

func TestNewPoller_DefaultInterval(t *testing.T) {
	p := NewPoller(logger.NewNop(), Config{}).(*poller)
	assert.Equal(t, 12*time.Hour, p.interval)
}
