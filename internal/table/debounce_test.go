package table

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDebouncer_Coalesces(t *testing.T) {
	t.Parallel()
	d := NewDebouncer(20 * time.Millisecond)
	var n atomic.Int32

	for range 10 {
		d.Trigger(func() { n.Add(1) })
	}
	require.True(t, d.Pending())
	require.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, 2*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	require.EqualValues(t, 1, n.Load())
	require.False(t, d.Pending())
}

func TestDebouncer_Cancel(t *testing.T) {
	t.Parallel()
	d := NewDebouncer(10 * time.Millisecond)
	var n atomic.Int32

	d.Trigger(func() { n.Add(1) })
	d.Cancel()
	time.Sleep(30 * time.Millisecond)
	require.Zero(t, n.Load())
	require.False(t, d.Pending())
}
