package fswatch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_NotifiesOnMarkdownChange(t *testing.T) {
	t.Parallel()

	inbox := filepath.Join(t.TempDir(), "inbox")
	changed := make(chan struct{}, 8)

	w, err := New(zerolog.Nop(), 20*time.Millisecond, func(context.Context) {
		changed <- struct{}{}
	}, inbox)
	require.NoError(t, err)
	defer w.Close() //nolint:errcheck

	require.NoError(t, os.WriteFile(filepath.Join(inbox, "m1.md"), []byte("---\n---\n"), 0o644))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for change callback")
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var calls atomic.Int32

	w, err := New(zerolog.Nop(), 200*time.Millisecond, func(context.Context) {
		calls.Add(1)
	}, dir)
	require.NoError(t, err)
	defer w.Close() //nolint:errcheck

	for _, name := range []string{"a.md", "b.md", "c.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatcher_CloseWithPendingCallback(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var calls atomic.Int32

	w, err := New(zerolog.Nop(), time.Hour, func(context.Context) {
		calls.Add(1)
	}, dir)
	require.NoError(t, err)

	w.handleEvent(fsnotify.Event{Name: filepath.Join(dir, "x.md"), Op: fsnotify.Write})

	done := make(chan struct{})
	go func() {
		_ = w.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close blocked on a pending callback")
	}
	assert.Zero(t, calls.Load())
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"markdown write", fsnotify.Event{Name: "/x/inbox/m.md", Op: fsnotify.Write}, true},
		{"markdown remove", fsnotify.Event{Name: "/x/inbox/m.md", Op: fsnotify.Remove}, true},
		{"temp file", fsnotify.Event{Name: "/x/inbox/.m.md.123.tmp", Op: fsnotify.Create}, false},
		{"other extension", fsnotify.Event{Name: "/x/inbox/notes.txt", Op: fsnotify.Write}, false},
		{"chmod only", fsnotify.Event{Name: "/x/inbox/m.md", Op: fsnotify.Chmod}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevant(tt.ev))
		})
	}
}
