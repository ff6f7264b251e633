package executil

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSh_StderrCappedAtMaxLen(t *testing.T) {
	ctx := context.Background()

	// Write twice the cap to stderr; only the first maxStderrLen bytes should appear in the error.
	longStderr := strings.Repeat("A", maxStderrLen*2)
	cmd := fmt.Sprintf("printf '%%s' '%s' >&2; exit 1", longStderr)

	_, err := RealExecutor{}.RunSh(ctx, "", cmd)
	require.Error(t, err)

	errMsg := err.Error()
	assert.LessOrEqual(t, len(errMsg), maxStderrLen+20, "error message should be capped")
	assert.Equal(t, strings.Repeat("A", maxStderrLen), errMsg[:maxStderrLen])
}

func TestRunSh_PreservesExitError(t *testing.T) {
	_, err := RealExecutor{}.RunSh(context.Background(), "", "echo 'error message' >&2; exit 3")
	require.Error(t, err)

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr, "original ExitError should be preserved via wrapping")
	assert.Equal(t, 3, exitErr.ExitCode())
	assert.Contains(t, err.Error(), "error message")
}

func TestRunSh_ReturnsStdoutInDir(t *testing.T) {
	dir := t.TempDir()
	out, err := RealExecutor{}.RunSh(context.Background(), dir, "pwd")
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(strings.TrimSpace(string(out)))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStartSh_DoesNotWait(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "done")

	start := time.Now()
	require.NoError(t, RealExecutor{}.StartSh(dir, "sleep 0.2; touch done"))
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	require.Eventually(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestRecordingExecutor(t *testing.T) {
	rec := &RecordingExecutor{
		Outputs: map[string][]byte{"make": []byte("ok")},
		Errors:  map[string]error{"false": fmt.Errorf("exit status 1")},
	}

	out, err := rec.RunSh(context.Background(), "/src", "make")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))

	require.Error(t, rec.StartSh("", "false"))

	assert.Equal(t, []RecordedCommand{
		{Dir: "/src", Cmd: "make", Waited: true},
		{Cmd: "false"},
	}, rec.Recorded())
}
