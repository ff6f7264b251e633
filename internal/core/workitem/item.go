// Package workitem stores kanban work items as markdown files whose parent
// directory is the item's status.
package workitem

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/colonyops/comb/internal/core/errs"
)

// Status is a kanban column.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusDoing      Status = "doing"
	StatusCodeReview Status = "code-review"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
)

// Statuses returns every status in board order.
func Statuses() []Status {
	return []Status{StatusTodo, StatusDoing, StatusCodeReview, StatusDone, StatusCancelled}
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool { return slices.Contains(Statuses(), s) }

// Terminal reports whether entering s completes the item.
func (s Status) Terminal() bool { return s == StatusDone || s == StatusCancelled }

// ParseStatus validates a user supplied status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", errs.Invalid("status", "%q is not one of %s", s, joinEnum(Statuses()))
	}
	return st, nil
}

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

func Priorities() []Priority {
	return []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}
}

func (p Priority) IsValid() bool { return slices.Contains(Priorities(), p) }

// ParsePriority validates a user supplied priority. Empty means medium.
func ParsePriority(s string) (Priority, error) {
	if strings.TrimSpace(s) == "" {
		return PriorityMedium, nil
	}
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", errs.Invalid("priority", "%q is not one of %s", s, joinEnum(Priorities()))
	}
	return p, nil
}

type Type string

const (
	TypeStory Type = "story"
	TypeTask  Type = "task"
)

func (t Type) IsValid() bool { return t == TypeStory || t == TypeTask }

// ParseType validates a user supplied item type. Empty means task.
func ParseType(s string) (Type, error) {
	if strings.TrimSpace(s) == "" {
		return TypeTask, nil
	}
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", errs.Invalid("type", "%q is not one of story, task", s)
	}
	return t, nil
}

func joinEnum[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// Item is a single work item.
type Item struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Priority       Priority   `json:"priority"`
	Status         Status     `json:"status"`
	Type           Type       `json:"type"`
	Assignee       string     `json:"assignee,omitempty"`
	Reviewer       string     `json:"reviewer,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	Created        time.Time  `json:"created"`
	Started        *time.Time `json:"started,omitempty"`
	Completed      *time.Time `json:"completed,omitempty"`
	EstimatedHours *float64   `json:"estimated_hours,omitempty"`
	FeatureRef     string     `json:"feature_ref,omitempty"`
	FilePath       string     `json:"file_path"`
	Body           string     `json:"body,omitempty"`
}

// HasTag reports whether the item carries tag (case-insensitive).
func (i Item) HasTag(tag string) bool {
	return slices.ContainsFunc(i.Tags, func(t string) bool { return strings.EqualFold(t, tag) })
}

// transition applies the status change and stamps started/completed the
// first time the item enters doing or a terminal status.
func (i *Item) transition(to Status, now time.Time) {
	i.Status = to
	if to == StatusDoing && i.Started == nil {
		i.Started = &now
	}
	if to.Terminal() && i.Completed == nil {
		i.Completed = &now
	}
}

func (i Item) String() string {
	return fmt.Sprintf("%s [%s] %s", i.ID, i.Status, i.Title)
}

// ChangeKind describes how an item changed.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeMoved   ChangeKind = "moved"
	ChangeDeleted ChangeKind = "deleted"
)

// Observer receives store notifications. from is the previous status for
// moves and empty otherwise.
type Observer interface {
	ItemChanged(item Item, kind ChangeKind, from Status)
}

type nopObserver struct{}

func (nopObserver) ItemChanged(Item, ChangeKind, Status) {}
