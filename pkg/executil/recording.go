package executil

import (
	"context"
	"sync"
)

// RecordedCommand captures a command that was executed.
type RecordedCommand struct {
	Dir    string
	Cmd    string
	Waited bool
}

// RecordingExecutor captures commands for testing.
// Configure Outputs and Errors maps to control return values.
type RecordingExecutor struct {
	mu       sync.Mutex
	Commands []RecordedCommand

	// Outputs maps full command strings to their output.
	Outputs map[string][]byte

	// Errors maps full command strings to their error.
	Errors map[string]error
}

var _ Executor = (*RecordingExecutor)(nil)

// RunSh records the command and returns configured output/error.
func (e *RecordingExecutor) RunSh(_ context.Context, dir, cmd string) ([]byte, error) {
	return e.record(dir, cmd, true)
}

// StartSh records the command and returns the configured error.
func (e *RecordingExecutor) StartSh(dir, cmd string) error {
	_, err := e.record(dir, cmd, false)
	return err
}

// Recorded returns a copy of the recorded commands.
func (e *RecordingExecutor) Recorded() []RecordedCommand {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]RecordedCommand, len(e.Commands))
	copy(out, e.Commands)
	return out
}

func (e *RecordingExecutor) record(dir, cmd string, waited bool) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Commands = append(e.Commands, RecordedCommand{
		Dir:    dir,
		Cmd:    cmd,
		Waited: waited,
	})

	var out []byte
	var err error

	if e.Outputs != nil {
		out = e.Outputs[cmd]
	}
	if e.Errors != nil {
		err = e.Errors[cmd]
	}

	return out, err
}
