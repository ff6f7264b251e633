package mailbox

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/colonyops/comb/pkg/frontmatter"
)

// header mirrors the YAML block at the top of a message file.
type header struct {
	ID        string `yaml:"id"`
	From      string `yaml:"from"`
	To        string `yaml:"to"`
	Subject   string `yaml:"subject"`
	Timestamp string `yaml:"timestamp"`
	Read      bool   `yaml:"read"`
	Archived  bool   `yaml:"archived"`
}

// Encode renders msg in the on-disk format. Header keys are written in a fixed
// order; values YAML could misread are double-quoted.
func Encode(msg Message) []byte {
	var h bytes.Buffer
	raw := func(key, value string) {
		fmt.Fprintf(&h, "%s: %s\n", key, value)
	}

	raw("id", quote(msg.ID))
	raw("from", quote(msg.From))
	raw("to", quote(msg.To))
	raw("subject", quote(msg.Subject))
	raw("timestamp", msg.Timestamp.UTC().Format(time.RFC3339Nano))
	raw("read", strconv.FormatBool(msg.Read))
	raw("archived", strconv.FormatBool(msg.Archived))

	return frontmatter.Join(h.Bytes(), []byte(msg.Body))
}

// Decode parses a message file. fallbackID is used when the header has no id.
// Files missing from, to or subject are rejected.
func Decode(content []byte, fallbackID string) (Message, error) {
	var h header
	body, err := frontmatter.Decode(content, &h)
	if err != nil {
		return Message{}, err
	}

	msg := Message{
		ID:       h.ID,
		From:     h.From,
		To:       h.To,
		Subject:  h.Subject,
		Body:     string(body),
		Read:     h.Read,
		Archived: h.Archived,
	}
	if msg.ID == "" {
		msg.ID = fallbackID
	}
	if h.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339Nano, h.Timestamp)
		if err != nil {
			return Message{}, fmt.Errorf("parse timestamp %q: %w", h.Timestamp, err)
		}
		msg.Timestamp = ts
	}

	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

var reserved = map[string]bool{
	"true": true, "false": true, "yes": true, "no": true, "on": true, "off": true,
	"y": true, "n": true, "null": true, "~": true,
}

// quote returns v unchanged when YAML reads it back as the same plain string,
// otherwise a double-quoted scalar. strconv.Quote escapes are a subset of the
// YAML double-quoted escapes.
func quote(v string) string {
	if needsQuote(v) {
		return strconv.Quote(v)
	}
	return v
}

func needsQuote(v string) bool {
	if v == "" || strings.TrimSpace(v) != v {
		return true
	}
	if strings.ContainsAny(v, ":#\n\r\t\"'\\") {
		return true
	}
	if strings.ContainsRune("-?,[]{}&*!|>%@`", rune(v[0])) {
		return true
	}
	if reserved[strings.ToLower(v)] {
		return true
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return true
	}
	for _, r := range v {
		if !strconv.IsPrint(r) {
			return true
		}
	}
	return false
}
