package randid

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-z0-9]*$`)

	for _, length := range []int{0, 1, 4, 8, 16} {
		result := Generate(length)
		assert.Len(t, result, length)
		assert.True(t, pattern.MatchString(result), "Generate(%d) = %q, want only [a-z0-9]", length, result)
	}

	assert.Empty(t, Generate(-3))
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		seen[Generate(8)] = true
	}

	// 36^8 combinations; fewer than 90 distinct values means broken randomness
	assert.GreaterOrEqual(t, len(seen), 90)
}

func TestPrefixed(t *testing.T) {
	id := Prefixed("todo", 6)
	assert.True(t, strings.HasPrefix(id, "todo-"))
	assert.Len(t, id, len("todo-")+6)
}
