// Package todo mirrors each agent's self-reported task list. Entries are
// ephemeral: they live in memory, are keyed by their content text and are
// reconciled from full snapshots.
package todo

import (
	"strings"
	"time"

	"github.com/colonyops/comb/internal/core/errs"
)

// Status is the progress of a todo entry.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Todo is one entry of an agent's list.
type Todo struct {
	ID          string     `json:"id"`
	Agent       string     `json:"agent"`
	Content     string     `json:"content"`
	ActiveForm  string     `json:"active_form"`
	Status      Status     `json:"status"`
	StoryID     string     `json:"story_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Input is one entry of a reported snapshot.
type Input struct {
	Content    string `json:"content"`
	ActiveForm string `json:"activeForm,omitempty"`
	Status     Status `json:"status"`
	StoryID    string `json:"storyId,omitempty"`
}

// normalize applies defaults and validates the entry.
func (in Input) normalize() (Input, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return in, errs.Invalid("todo", "content is required")
	}
	if in.Status == "" {
		in.Status = StatusPending
	}
	if !in.Status.IsValid() {
		return in, errs.Invalid("todo", "unknown status %q for %q", in.Status, in.Content)
	}
	if strings.TrimSpace(in.ActiveForm) == "" {
		in.ActiveForm = in.Content
	}
	return in, nil
}

// Observer receives reconciler notifications.
type Observer interface {
	TodoAdded(t Todo)
	TodoUpdated(t Todo)
	TodoRemoved(t Todo)
}

type nopObserver struct{}

func (nopObserver) TodoAdded(Todo)   {}
func (nopObserver) TodoUpdated(Todo) {}
func (nopObserver) TodoRemoved(Todo) {}
