package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClock_Advance(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("fires due timers in deadline order", func(t *testing.T) {
		c := Fake(start)
		var order []string
		c.AfterFunc(2*time.Second, func() { order = append(order, "b") })
		c.AfterFunc(time.Second, func() { order = append(order, "a") })
		c.AfterFunc(time.Minute, func() { order = append(order, "c") })

		c.Advance(5 * time.Second)

		assert.Equal(t, []string{"a", "b"}, order)
		assert.Equal(t, 1, c.Pending())
		assert.Equal(t, start.Add(5*time.Second), c.Now())
	})

	t.Run("stopped timers never fire", func(t *testing.T) {
		c := Fake(start)
		fired := false
		timer := c.AfterFunc(time.Second, func() { fired = true })

		assert.True(t, timer.Stop())
		assert.False(t, timer.Stop())

		c.Advance(time.Hour)
		assert.False(t, fired)
		assert.Equal(t, 0, c.Pending())
	})

	t.Run("stop after fire reports false", func(t *testing.T) {
		c := Fake(start)
		timer := c.AfterFunc(time.Second, func() {})
		c.Advance(time.Second)
		assert.False(t, timer.Stop())
	})

	t.Run("callbacks may schedule new timers", func(t *testing.T) {
		c := Fake(start)
		count := 0
		c.AfterFunc(time.Second, func() {
			count++
			c.AfterFunc(time.Second, func() { count++ })
		})

		c.Advance(time.Second)
		assert.Equal(t, 1, count)
		c.Advance(time.Second)
		assert.Equal(t, 2, count)
	})
}
