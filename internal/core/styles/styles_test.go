package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThemes(t *testing.T) {
	names := ThemeNames()
	require.Contains(t, names, DefaultTheme)

	for _, name := range names {
		p, ok := GetPalette(name)
		require.True(t, ok, name)
		assert.NotEmpty(t, p.Primary, name)
	}

	_, ok := GetPalette("nope")
	assert.False(t, ok)
}

func TestTable(t *testing.T) {
	out := Table([]string{"ID", "TITLE"}, [][]string{{"WI-2026-001", "Fix login"}})
	assert.Contains(t, out, "WI-2026-001")
	assert.Contains(t, out, "Fix login")
	assert.Contains(t, out, "TITLE")
}
