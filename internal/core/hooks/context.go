package hooks

import (
	"strconv"
	"time"
)

// EventContext carries the structured details of a lifecycle event. Only the
// sections relevant to the event need to be set.
type EventContext struct {
	Timestamp time.Time     `json:"timestamp,omitzero"`
	Agent     *AgentInfo    `json:"agent,omitempty"`
	File      *FileInfo     `json:"file,omitempty"`
	Build     *BuildInfo    `json:"build,omitempty"`
	Test      *TestInfo     `json:"test,omitempty"`
	Message   *MessageInfo  `json:"message,omitempty"`
	WorkItem  *WorkItemInfo `json:"workItem,omitempty"`
	// Vars holds free-form variables. Structured fields win on collisions.
	Vars map[string]string `json:"vars,omitempty"`
}

type AgentInfo struct {
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

type FileInfo struct {
	Path       string `json:"path"`
	ChangeType string `json:"changeType,omitempty"`
}

type BuildInfo struct {
	Status string `json:"status"`
	Output string `json:"output,omitempty"`
}

type TestInfo struct {
	Status string `json:"status"`
	Passed int    `json:"passed"`
	Failed int    `json:"failed"`
}

type MessageInfo struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
}

type WorkItemInfo struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previousStatus,omitempty"`
}

// Variables flattens the context into the dotted variable map used by
// trigger filters, conditions and interpolation.
func (c EventContext) Variables(event EventType) map[string]string {
	vars := make(map[string]string, len(c.Vars)+8)
	for k, v := range c.Vars {
		vars[k] = v
	}

	vars["event.type"] = string(event)
	vars["event.timestamp"] = c.Timestamp.UTC().Format(time.RFC3339)

	if a := c.Agent; a != nil {
		vars["agent.name"] = a.Name
		vars["agent.status"] = a.Status
		vars["agent.output"] = a.Output
		vars["agent.error"] = a.Error
	}
	if f := c.File; f != nil {
		vars["file.path"] = f.Path
		vars["file.changeType"] = f.ChangeType
	}
	if b := c.Build; b != nil {
		vars["build.status"] = b.Status
		vars["build.output"] = b.Output
	}
	if t := c.Test; t != nil {
		vars["test.status"] = t.Status
		vars["test.passed"] = strconv.Itoa(t.Passed)
		vars["test.failed"] = strconv.Itoa(t.Failed)
	}
	if m := c.Message; m != nil {
		vars["message.id"] = m.ID
		vars["message.from"] = m.From
		vars["message.to"] = m.To
		vars["message.subject"] = m.Subject
	}
	if w := c.WorkItem; w != nil {
		vars["workItem.id"] = w.ID
		vars["workItem.title"] = w.Title
		vars["workItem.status"] = w.Status
		vars["workItem.previousStatus"] = w.PreviousStatus
	}
	return vars
}
