package hooks

import (
	"regexp"
	"strings"
	"sync"
)

var placeholder = regexp.MustCompile(`\{\{\s*([\w.\-]+)\s*\}\}`)

// Interpolate replaces {{name}} placeholders with values from vars.
// Placeholders without a value are left as written.
func Interpolate(s string, vars map[string]string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}

// regexCache compiles each pattern once. Invalid patterns are cached as nil.
type regexCache struct {
	mu sync.Mutex
	m  map[string]*regexp.Regexp
}

func (c *regexCache) get(pattern string) *regexp.Regexp {
	c.mu.Lock()
	defer c.mu.Unlock()
	if re, ok := c.m[pattern]; ok {
		return re
	}
	if c.m == nil {
		c.m = make(map[string]*regexp.Regexp)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		re = nil
	}
	c.m[pattern] = re
	return re
}

// evaluate reports whether cond holds for vars. Unknown operators hold.
func (c Condition) evaluate(vars map[string]string, cache *regexCache) bool {
	v, ok := vars[c.Variable]
	switch c.Operator {
	case OpEquals:
		return ok && v == c.Value
	case OpContains:
		return ok && strings.Contains(v, c.Value)
	case OpMatches:
		if !ok {
			return false
		}
		re := cache.get(c.Value)
		return re != nil && re.MatchString(v)
	case OpExists:
		return ok && v != ""
	default:
		return true
	}
}

// matches reports whether h reacts to event with vars: the trigger type and
// filters must match and every condition must hold.
func (h Hook) matches(event EventType, vars map[string]string, cache *regexCache) bool {
	if !h.IsEnabled() || h.Trigger.Type != event {
		return false
	}
	if h.Trigger.Agent != "" && vars["agent.name"] != h.Trigger.Agent {
		return false
	}
	if h.Trigger.PathPattern != "" {
		re := cache.get(h.Trigger.PathPattern)
		if re == nil || !re.MatchString(vars["file.path"]) {
			return false
		}
	}
	for _, c := range h.Conditions {
		if !c.evaluate(vars, cache) {
			return false
		}
	}
	return true
}
