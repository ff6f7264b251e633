package terminal

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/comb/pkg/executil"
)

func TestRunner_Wait(t *testing.T) {
	rec := &executil.RecordingExecutor{Outputs: map[string][]byte{"make test": []byte("PASS\n")}}
	r := NewRunner(rec, "/repo", zerolog.Nop())

	res, err := r.Run(context.Background(), "make test", "", true)
	require.NoError(t, err)
	assert.Equal(t, "PASS", res.Output)
	assert.Zero(t, res.ExitCode)

	assert.Equal(t, []executil.RecordedCommand{{Dir: "/repo", Cmd: "make test", Waited: true}}, rec.Recorded())
}

func TestRunner_Background(t *testing.T) {
	rec := &executil.RecordingExecutor{}
	r := NewRunner(rec, "/repo", zerolog.Nop())

	res, err := r.Run(context.Background(), "npm run dev", "/web", false)
	require.NoError(t, err)
	assert.Equal(t, "started", res.Output)
	assert.Equal(t, []executil.RecordedCommand{{Dir: "/web", Cmd: "npm run dev"}}, rec.Recorded())
}

func TestRunner_FailureReportsExitCode(t *testing.T) {
	r := NewRunner(executil.RealExecutor{}, t.TempDir(), zerolog.Nop())

	res, err := r.Run(context.Background(), "echo partial; exit 4", "", true)
	require.Error(t, err)
	assert.Equal(t, 4, res.ExitCode)
	assert.Equal(t, "partial", res.Output)
}

func TestRunner_StartError(t *testing.T) {
	rec := &executil.RecordingExecutor{Errors: map[string]error{"x": errors.New("no shell")}}
	r := NewRunner(rec, "", zerolog.Nop())

	_, err := r.Run(context.Background(), "x", "", false)
	require.EqualError(t, err, "no shell")
}
