// Package frontmatter splits and joins documents that begin with a YAML block
// fenced by "---" lines.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissing indicates the document does not start with a "---" fence.
	ErrMissing = errors.New("frontmatter: missing opening fence")
	// ErrUnterminated indicates the closing "---" fence was never found.
	ErrUnterminated = errors.New("frontmatter: missing closing fence")
)

var fence = []byte("---")

// Split returns the raw YAML header and the body that follows the closing
// fence. A single blank line between the fence and the body is consumed.
// CRLF endings are normalized in the header only; the body is returned as is.
func Split(content []byte) (header, body []byte, err error) {
	first, rest, ok := bytes.Cut(content, []byte("\n"))
	if !bytes.Equal(bytes.TrimSpace(first), fence) {
		return nil, nil, ErrMissing
	}
	if !ok {
		return nil, nil, ErrUnterminated
	}

	var lines [][]byte
	for ok {
		var line []byte
		line, rest, ok = bytes.Cut(rest, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))
		if bytes.Equal(bytes.TrimSpace(line), fence) {
			return bytes.Join(lines, []byte("\n")), trimBlankLine(rest), nil
		}
		lines = append(lines, line)
	}

	return nil, nil, ErrUnterminated
}

func trimBlankLine(b []byte) []byte {
	if bytes.HasPrefix(b, []byte("\r\n")) {
		return b[2:]
	}
	return bytes.TrimPrefix(b, []byte("\n"))
}

// Decode splits content and unmarshals the header into v.
func Decode(content []byte, v any) (body []byte, err error) {
	header, body, err := Split(content)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(header, v); err != nil {
		return nil, fmt.Errorf("frontmatter: parse header: %w", err)
	}
	return body, nil
}

// Join renders header and body with fences and one blank separator line.
func Join(header, body []byte) []byte {
	var buf bytes.Buffer
	buf.Write(fence)
	buf.WriteByte('\n')
	header = bytes.TrimRight(header, "\n")
	if len(header) > 0 {
		buf.Write(header)
		buf.WriteByte('\n')
	}
	buf.Write(fence)
	buf.WriteString("\n\n")
	buf.Write(body)
	return buf.Bytes()
}

// Encode marshals v as YAML and joins it with body.
func Encode(v any, body []byte) ([]byte, error) {
	header, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("frontmatter: encode header: %w", err)
	}
	return Join(header, body), nil
}
