// Package iojson reads and writes the JSON documents exchanged by CLI
// commands run with --json.
package iojson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// WriteWith writes obj to w as indented JSON. Message bodies and commands
// are written without HTML escaping so they read the same as in text mode.
// When obj cannot be encoded, a {"message", "data"} error document goes to
// ew instead and nothing is written to w.
func WriteWith(w io.Writer, ew io.Writer, obj any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if err := enc.Encode(obj); err != nil {
		doc, _ := json.Marshal(map[string]any{
			"message": "encode output",
			"data":    map[string]string{"json_error": err.Error()},
		})
		_, werr := fmt.Fprintln(ew, string(doc))
		return werr
	}

	_, err := w.Write(buf.Bytes())
	return err
}
