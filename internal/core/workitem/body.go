package workitem

import (
	"slices"
	"strings"
)

const (
	sectionDescription = "Description"
	sectionCriteria    = "Acceptance Criteria"
	sectionNotes       = "Notes"
)

// seedBody renders the initial markdown body of a new item.
func seedBody(description string, criteria []string) string {
	var b strings.Builder
	b.WriteString("## " + sectionDescription + "\n\n")
	if d := strings.TrimSpace(description); d != "" {
		b.WriteString(d + "\n\n")
	}
	b.WriteString("## " + sectionCriteria + "\n\n")
	for _, c := range criteria {
		if c = strings.TrimSpace(c); c != "" {
			b.WriteString("- [ ] " + c + "\n")
		}
	}
	if len(criteria) > 0 {
		b.WriteString("\n")
	}
	b.WriteString("## " + sectionNotes + "\n")
	return b.String()
}

// sectionBounds finds "## heading" and returns its line index and the index
// of the first line after the section. The description is free markdown, so
// it only ends at a heading comb itself writes; other sections end at any
// "## " line.
func sectionBounds(lines []string, heading string) (start, end int, ok bool) {
	start = -1
	for i, line := range lines {
		if start < 0 {
			if strings.TrimSpace(line) == "## "+heading {
				start = i
			}
			continue
		}
		if endsSection(heading, line) {
			return start, i, true
		}
	}
	if start < 0 {
		return 0, 0, false
	}
	return start, len(lines), true
}

func endsSection(heading, line string) bool {
	if !strings.HasPrefix(line, "## ") {
		return false
	}
	if heading != sectionDescription {
		return true
	}
	switch strings.TrimSpace(line) {
	case "## " + sectionCriteria, "## " + sectionNotes:
		return true
	}
	return false
}

// section returns the trimmed content of the named section.
func section(body, heading string) string {
	lines := strings.Split(body, "\n")
	start, end, ok := sectionBounds(lines, heading)
	if !ok {
		return ""
	}
	return strings.TrimSpace(strings.Join(lines[start+1:end], "\n"))
}

// replaceSection swaps the content of the named section, appending the
// section when the body does not have one.
func replaceSection(body, heading, content string) string {
	content = strings.TrimSpace(content)
	lines := strings.Split(body, "\n")
	start, end, ok := sectionBounds(lines, heading)
	if !ok {
		return appendSection(body, heading, content)
	}

	out := slices.Clone(lines[:start+1])
	out = append(out, "")
	if content != "" {
		out = append(out, content, "")
	}
	out = append(out, lines[end:]...)
	return strings.Join(out, "\n")
}

// appendNote adds a "### timestamp - author" entry at the end of the Notes
// section, creating the section when absent.
func appendNote(body, stamp, author, text string) string {
	note := "### " + stamp + " - " + author + "\n\n" + strings.TrimSpace(text) + "\n"

	lines := strings.Split(body, "\n")
	start, end, ok := sectionBounds(lines, sectionNotes)
	if !ok {
		return appendSection(body, sectionNotes, note)
	}

	head := slices.Clone(lines[:end])
	for len(head) > start+1 && strings.TrimSpace(head[len(head)-1]) == "" {
		head = head[:len(head)-1]
	}
	head = append(head, "", strings.TrimRight(note, "\n"), "")
	return strings.Join(append(head, lines[end:]...), "\n")
}

func appendSection(body, heading, content string) string {
	body = strings.TrimRight(body, "\n")
	if body != "" {
		body += "\n\n"
	}
	body += "## " + heading + "\n\n"
	if content = strings.TrimSpace(content); content != "" {
		body += content + "\n"
	}
	return body
}
