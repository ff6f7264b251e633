// Package mailbox implements the durable, file-backed inter-agent mailbox.
// Each message is one markdown file with a YAML header; its directory
// (inbox or archive) records whether it has been archived.
package mailbox

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/colonyops/comb/internal/core/errs"
)

// Message is a single inter-agent message.
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
	Archived  bool      `json:"archived"`
}

// Validate checks the required addressing fields and the id. Header fields
// must be valid UTF-8 or the file could not be read back.
func (m Message) Validate() error {
	for name, v := range map[string]string{"id": m.ID, "from": m.From, "to": m.To, "subject": m.Subject} {
		if !utf8.ValidString(v) {
			return errs.Invalid("message", "%s is not valid UTF-8", name)
		}
	}

	switch {
	case strings.TrimSpace(m.From) == "":
		return errs.Invalid("message", "from is required")
	case strings.TrimSpace(m.To) == "":
		return errs.Invalid("message", "to is required")
	case strings.TrimSpace(m.Subject) == "":
		return errs.Invalid("message", "subject is required")
	case strings.ContainsAny(m.ID, `/\`) || m.ID == "." || m.ID == "..":
		return errs.Invalid("message", "id %q is not a valid file name", m.ID)
	}
	return nil
}

// ReplySubject prefixes subject with "Re: " unless it already has one.
func ReplySubject(subject string) string {
	if len(subject) >= 3 && strings.EqualFold(subject[:3], "re:") {
		return subject
	}
	return "Re: " + subject
}

// Observer receives mailbox notifications after a message is stored.
type Observer interface {
	// MessageReceived fires for every stored message.
	MessageReceived(msg Message)
	// MessageArrived fires once per stored message, addressed to its recipient.
	MessageArrived(recipient string, msg Message)
}

type nopObserver struct{}

func (nopObserver) MessageReceived(Message)        {}
func (nopObserver) MessageArrived(string, Message) {}
