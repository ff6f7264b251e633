package sweep

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) SweepExpired() int {
	s.calls.Add(1)
	return 1
}

func TestStart(t *testing.T) {
	s := &countingSweeper{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		Start(ctx, s, 5*time.Millisecond, zerolog.Nop())
		close(done)
	}()

	assert.Eventually(t, func() bool { return s.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
