package iojson

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestWriteWith(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, WriteWith(&out, &errOut, payload{Name: "a", Count: 2}))

	var got payload
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, payload{Name: "a", Count: 2}, got)
	assert.Empty(t, errOut.String())
}

func TestWriteWith_MarshalError(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, WriteWith(&out, &errOut, make(chan int)))

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "json_error")
}

func TestWriteWith_NoHTMLEscaping(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, WriteWith(&out, &errOut, payload{Name: "a && b <c>"}))

	assert.Contains(t, out.String(), `"a && b <c>"`)
	assert.True(t, strings.HasSuffix(out.String(), "}\n"))
}

func TestFileReader(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "in.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"name":"x","count":1}`), 0o644))

		fr := &FileReader[payload]{fileFlagValue: path}
		got, err := fr.Read()
		require.NoError(t, err)
		assert.Equal(t, payload{Name: "x", Count: 1}, got)
	})

	t.Run("missing file", func(t *testing.T) {
		fr := &FileReader[payload]{fileFlagValue: filepath.Join(t.TempDir(), "nope.json")}
		_, err := fr.Read()
		require.Error(t, err)
	})

	t.Run("stdin", func(t *testing.T) {
		fr := &FileReader[payload]{stdin: strings.NewReader(`{"name":"piped"}`)}
		got, ok, err := fr.ReadOptional()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "piped", got.Name)
	})

	t.Run("empty stdin is optional", func(t *testing.T) {
		fr := &FileReader[payload]{stdin: strings.NewReader("")}
		_, ok, err := fr.ReadOptional()
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = fr.Read()
		require.Error(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		fr := &FileReader[payload]{stdin: strings.NewReader("{")}
		_, _, err := fr.ReadOptional()
		require.Error(t, err)
	})
}
