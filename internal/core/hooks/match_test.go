package hooks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInterpolate(t *testing.T) {
	vars := map[string]string{"agent.name": "coder-1", "file.path": "src/a.go", "empty": ""}

	tests := []struct {
		in   string
		want string
	}{
		{"no placeholders", "no placeholders"},
		{"{{agent.name}} failed", "coder-1 failed"},
		{"{{ agent.name }} saved {{file.path}}", "coder-1 saved src/a.go"},
		{"unknown {{agent.role}} stays", "unknown {{agent.role}} stays"},
		{"[{{empty}}]", "[]"},
		{"{{agent.name", "{{agent.name"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Interpolate(tt.in, vars))
		})
	}
}

func TestCondition_Evaluate(t *testing.T) {
	vars := map[string]string{"agent.status": "error", "build.output": "FAIL: pkg/x", "agent.output": ""}
	var cache regexCache

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"equals exact", Condition{"agent.status", OpEquals, "error"}, true},
		{"equals is case sensitive", Condition{"agent.status", OpEquals, "Error"}, false},
		{"equals other value", Condition{"agent.status", OpEquals, "done"}, false},
		{"equals missing variable", Condition{"test.status", OpEquals, ""}, false},
		{"contains", Condition{"build.output", OpContains, "FAIL"}, true},
		{"contains miss", Condition{"build.output", OpContains, "panic"}, false},
		{"matches", Condition{"build.output", OpMatches, `^FAIL: pkg/\w+$`}, true},
		{"matches miss", Condition{"build.output", OpMatches, `^ok`}, false},
		{"matches invalid regex", Condition{"build.output", OpMatches, `(`}, false},
		{"exists", Condition{"agent.status", OpExists, ""}, true},
		{"exists empty", Condition{"agent.output", OpExists, ""}, false},
		{"exists missing", Condition{"file.path", OpExists, ""}, false},
		{"unknown operator holds", Condition{"anything", "startsWith", "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.evaluate(vars, &cache))
		})
	}
}

func TestEventContext_Variables(t *testing.T) {
	ec := EventContext{
		Timestamp: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Agent:     &AgentInfo{Name: "coder-1", Status: "done"},
		Test:      &TestInfo{Status: "failed", Passed: 10, Failed: 2},
		Vars:      map[string]string{"custom": "x", "agent.name": "ignored"},
	}

	vars := ec.Variables(EventTestCompleted)
	assert.Equal(t, "testCompleted", vars["event.type"])
	assert.Equal(t, "2026-03-01T09:00:00Z", vars["event.timestamp"])
	assert.Equal(t, "coder-1", vars["agent.name"])
	assert.Equal(t, "10", vars["test.passed"])
	assert.Equal(t, "2", vars["test.failed"])
	assert.Equal(t, "x", vars["custom"])

	_, ok := vars["file.path"]
	assert.False(t, ok)
}

func TestHook_Matches(t *testing.T) {
	var cache regexCache
	vars := map[string]string{"agent.name": "coder-1", "file.path": "src/app.ts"}

	h := Hook{Name: "h", Trigger: Trigger{Type: EventFileSaved}}
	assert.True(t, h.matches(EventFileSaved, vars, &cache))
	assert.False(t, h.matches(EventFileCreated, vars, &cache))

	h.Trigger.PathPattern = `\.ts$`
	assert.True(t, h.matches(EventFileSaved, vars, &cache))
	h.Trigger.PathPattern = `\.go$`
	assert.False(t, h.matches(EventFileSaved, vars, &cache))

	h.Trigger = Trigger{Type: EventFileSaved, Agent: "coder-2"}
	assert.False(t, h.matches(EventFileSaved, vars, &cache))

	h.Trigger.Agent = "coder-1"
	h.Enabled = ptr(false)
	assert.False(t, h.matches(EventFileSaved, vars, &cache))
}
