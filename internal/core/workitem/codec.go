package workitem

import (
	"fmt"
	"strings"
	"time"

	"github.com/colonyops/comb/internal/core/errs"
	"github.com/colonyops/comb/pkg/frontmatter"
)

// envelope is the YAML header of a work item file.
type envelope struct {
	ID             string     `yaml:"id"`
	Title          string     `yaml:"title"`
	Priority       Priority   `yaml:"priority"`
	Status         Status     `yaml:"status"`
	Type           Type       `yaml:"type"`
	Assignee       string     `yaml:"assignee,omitempty"`
	Reviewer       string     `yaml:"reviewer,omitempty"`
	Tags           []string   `yaml:"tags"`
	Created        time.Time  `yaml:"created"`
	Started        *time.Time `yaml:"started,omitempty"`
	Completed      *time.Time `yaml:"completed,omitempty"`
	EstimatedHours *float64   `yaml:"estimatedHours,omitempty"`
	FeatureRef     string     `yaml:"featureRef,omitempty"`
}

// Encode renders item in its on-disk format. The description lives in the
// body, so callers must keep Body in sync with Description.
func Encode(item Item) ([]byte, error) {
	env := envelope{
		ID:             item.ID,
		Title:          item.Title,
		Priority:       item.Priority,
		Status:         item.Status,
		Type:           item.Type,
		Assignee:       item.Assignee,
		Reviewer:       item.Reviewer,
		Tags:           item.Tags,
		Created:        item.Created,
		Started:        item.Started,
		Completed:      item.Completed,
		EstimatedHours: item.EstimatedHours,
		FeatureRef:     item.FeatureRef,
	}
	if env.Tags == nil {
		env.Tags = []string{}
	}

	data, err := frontmatter.Encode(env, []byte(item.Body))
	if err != nil {
		return nil, fmt.Errorf("encode work item %s: %w", item.ID, err)
	}
	return data, nil
}

// Decode parses a work item file. fallbackID is used when the header has no
// id. Missing priority or type fall back to their defaults.
func Decode(content []byte, fallbackID string) (Item, error) {
	var env envelope
	body, err := frontmatter.Decode(content, &env)
	if err != nil {
		return Item{}, err
	}

	item := Item{
		ID:             env.ID,
		Title:          env.Title,
		Priority:       env.Priority,
		Status:         env.Status,
		Type:           env.Type,
		Assignee:       env.Assignee,
		Reviewer:       env.Reviewer,
		Created:        env.Created,
		Started:        env.Started,
		Completed:      env.Completed,
		EstimatedHours: env.EstimatedHours,
		FeatureRef:     env.FeatureRef,
		Body:           string(body),
	}
	if len(env.Tags) > 0 {
		item.Tags = env.Tags
	}
	if item.ID == "" {
		item.ID = fallbackID
	}
	if item.Priority == "" {
		item.Priority = PriorityMedium
	}
	if item.Type == "" {
		item.Type = TypeTask
	}
	item.Description = section(item.Body, sectionDescription)

	switch {
	case strings.TrimSpace(item.Title) == "":
		return Item{}, errs.Invalid("work item", "title is required")
	case !item.Priority.IsValid():
		return Item{}, errs.Invalid("work item", "unknown priority %q", item.Priority)
	case !item.Type.IsValid():
		return Item{}, errs.Invalid("work item", "unknown type %q", item.Type)
	}
	return item, nil
}
