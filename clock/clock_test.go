package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRealClock(t *testing.T) {
	c := Real()
	require.WithinDuration(t, time.Now(), c.Now(), time.Second)

	fired := make(chan struct{})
	timer := c.AfterFunc(time.Millisecond, func() { close(fired) })
	require.NotNil(t, timer)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Advance moves time", func(t *testing.T) {
		c := NewFake(start)
		c.Advance(1500 * time.Millisecond)
		require.Equal(t, start.Add(1500*time.Millisecond), c.Now())
	})

	t.Run("Timers fire in deadline order", func(t *testing.T) {
		c := NewFake(start)
		var order []int
		c.AfterFunc(3*time.Second, func() { order = append(order, 3) })
		c.AfterFunc(time.Second, func() { order = append(order, 1) })
		c.AfterFunc(2*time.Second, func() { order = append(order, 2) })

		c.Advance(2 * time.Second)
		require.Equal(t, []int{1, 2}, order)
		require.Equal(t, 1, c.PendingTimers())

		c.Advance(time.Second)
		require.Equal(t, []int{1, 2, 3}, order)
		require.Equal(t, 0, c.PendingTimers())
	})

	t.Run("Callback observes its deadline", func(t *testing.T) {
		c := NewFake(start)
		var seen time.Time
		c.AfterFunc(time.Second, func() { seen = c.Now() })
		c.Advance(5 * time.Second)
		require.Equal(t, start.Add(time.Second), seen)
		require.Equal(t, start.Add(5*time.Second), c.Now())
	})

	t.Run("Stopped timers never fire", func(t *testing.T) {
		c := NewFake(start)
		fired := false
		timer := c.AfterFunc(time.Second, func() { fired = true })
		require.True(t, timer.Stop())
		require.False(t, timer.Stop())

		c.Advance(time.Minute)
		require.False(t, fired)
	})

	t.Run("Timers scheduled from callbacks", func(t *testing.T) {
		c := NewFake(start)
		count := 0
		var tick func()
		tick = func() {
			count++
			if count < 3 {
				c.AfterFunc(time.Second, tick)
			}
		}
		c.AfterFunc(time.Second, tick)

		c.Advance(10 * time.Second)
		require.Equal(t, 3, count)
	})
}
