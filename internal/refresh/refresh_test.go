package refresh

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicker_RunsUntilStopped(t *testing.T) {
	var runs atomic.Int32
	tk := New("test", "@every 1s", time.UTC, func() { runs.Add(1) })

	require.NoError(t, tk.Start())
	assert.True(t, tk.Running())
	assert.False(t, tk.Next().IsZero())

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	ctx := tk.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not complete")
	}
	assert.False(t, tk.Running())
	assert.True(t, tk.Next().IsZero())

	stopped := runs.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load(), "no runs after Stop")
}

func TestTicker_StartStopIdempotent(t *testing.T) {
	tk := New("test", "@every 60s", nil, func() {})

	<-tk.Stop().Done()

	require.NoError(t, tk.Start())
	require.NoError(t, tk.Start())
	<-tk.Stop().Done()
	<-tk.Stop().Done()

	require.NoError(t, tk.Start(), "a stopped ticker can be restarted")
	<-tk.Stop().Done()
}

func TestTicker_InvalidSpec(t *testing.T) {
	tk := New("test", "every minute please", time.UTC, func() {})

	err := tk.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every minute please")
	assert.False(t, tk.Running())
}
