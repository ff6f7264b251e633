package human

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeldWriter_PassThrough(t *testing.T) {
	var out bytes.Buffer
	w := &heldWriter{w: &out}

	_, err := w.Write([]byte("now"))
	require.NoError(t, err)
	assert.Equal(t, "now", out.String())
}

func TestHeldWriter_BuffersUntilLastRelease(t *testing.T) {
	var out bytes.Buffer
	w := &heldWriter{w: &out}

	w.hold()
	w.hold()
	_, _ = w.Write([]byte("a"))
	require.NoError(t, w.release())
	assert.Empty(t, out.String(), "still held once")

	_, _ = w.Write([]byte("b"))
	require.NoError(t, w.release())
	assert.Equal(t, "ab", out.String())

	require.NoError(t, w.release(), "extra release is harmless")
	_, _ = w.Write([]byte("c"))
	assert.Equal(t, "abc", out.String())
}

func TestHeldWriter_ConcurrentWrites(t *testing.T) {
	var out bytes.Buffer
	w := &heldWriter{w: &out}
	w.hold()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = fmt.Fprintf(w, "%02d", i)
		}()
	}
	wg.Wait()

	require.NoError(t, w.release())
	assert.Len(t, out.String(), 100)
}
