package claims

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Normalize converts a path or pattern to a clean, slash-separated relative
// form. "./src/" and "src" normalize to the same value.
func Normalize(p string) string {
	p = filepath.ToSlash(strings.TrimSpace(p))
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	if p == "." {
		return ""
	}
	return p
}

// IsPattern reports whether p contains glob metacharacters.
func IsPattern(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

// ValidPattern reports whether p is a non-empty, well-formed path or glob.
func ValidPattern(p string) bool {
	p = Normalize(p)
	if p == "" || strings.HasPrefix(p, "../") || p == ".." {
		return false
	}
	return doublestar.ValidatePattern(p)
}

// Overlaps reports whether some file could be covered by both a and b.
//
// A claim on a path covers that path and everything beneath it, so claims are
// compared segment by segment up to the length of the shorter one:
//
//   - literal segments must be equal
//   - a literal and a glob segment must match under doublestar rules
//     (supports *, ?, [...] and {a,b} within one segment)
//   - two glob segments are assumed to overlap
//   - a "**" segment on either side overlaps everything that follows it
//
// Pattern-versus-pattern overlap is therefore conservative: it may report an
// overlap for two globs that share no concrete file, never the reverse.
// Brace alternatives that contain "/" are not supported. An empty path
// overlaps nothing.
func Overlaps(a, b string) bool {
	a, b = Normalize(a), Normalize(b)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}

	as, bs := strings.Split(a, "/"), strings.Split(b, "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] == "**" || bs[i] == "**" {
			return true
		}
		if !segmentsOverlap(as[i], bs[i]) {
			return false
		}
	}
	return true
}

func segmentsOverlap(x, y string) bool {
	gx, gy := IsPattern(x), IsPattern(y)
	switch {
	case !gx && !gy:
		return x == y
	case gx && !gy:
		return matchSegment(x, y)
	case !gx && gy:
		return matchSegment(y, x)
	default:
		return true
	}
}

func matchSegment(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	if err != nil {
		return pattern == name
	}
	return ok
}
