package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantHeader string
		wantBody   string
		wantErr    error
	}{
		{
			name:       "header and body",
			content:    "---\nid: a\nto: b\n---\n\nhello\nworld\n",
			wantHeader: "id: a\nto: b",
			wantBody:   "hello\nworld\n",
		},
		{
			name:       "empty body",
			content:    "---\nid: a\n---\n\n",
			wantHeader: "id: a",
			wantBody:   "",
		},
		{
			name:       "no trailing newline after fence",
			content:    "---\nid: a\n---",
			wantHeader: "id: a",
			wantBody:   "",
		},
		{
			name:       "crlf line endings",
			content:    "---\r\nid: a\r\n---\r\n\r\nbody",
			wantHeader: "id: a",
			wantBody:   "body",
		},
		{
			name:       "crlf in body is preserved",
			content:    "---\nid: a\n---\n\nline1\r\nline2\r\n",
			wantHeader: "id: a",
			wantBody:   "line1\r\nline2\r\n",
		},
		{
			name:       "body keeps later fences",
			content:    "---\nid: a\n---\n\ntext\n---\nmore\n",
			wantHeader: "id: a",
			wantBody:   "text\n---\nmore\n",
		},
		{
			name:    "missing opening fence",
			content: "id: a\n---\n",
			wantErr: ErrMissing,
		},
		{
			name:    "missing closing fence",
			content: "---\nid: a\n",
			wantErr: ErrUnterminated,
		},
		{
			name:    "empty",
			content: "",
			wantErr: ErrMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, body, err := Split([]byte(tt.content))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHeader, string(header))
			assert.Equal(t, tt.wantBody, string(body))
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	type header struct {
		ID   string   `yaml:"id"`
		Tags []string `yaml:"tags,omitempty"`
	}

	in := header{ID: "WI-2026-001", Tags: []string{"a", "b"}}
	data, err := Encode(in, []byte("## Description\n\ntext\n"))
	require.NoError(t, err)

	var out header
	body, err := Decode(data, &out)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, "## Description\n\ntext\n", string(body))
}
