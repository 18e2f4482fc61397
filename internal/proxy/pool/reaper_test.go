package pool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaperSweep(t *testing.T) {
	m, dialer := newTestManager()

	_, err := m.Connect(context.Background(), "stale", "mongodb://localhost/app", "app", nil)
	require.NoError(t, err)

	sess, err := m.Get("stale")
	require.NoError(t, err)
	sess.lastUsed.Store(time.Now().Add(-time.Hour).UnixNano())

	r := NewReaper(m, time.Minute, 30*time.Minute)
	r.Sweep()

	assert.Equal(t, 0, m.Count())
	assert.True(t, dialer.conns[0].isClosed())
}

func TestReaperRunStopsOnCancel(t *testing.T) {
	m, _ := newTestManager()
	r := NewReaper(m, 10*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after cancellation")
	}
}
