// Package claims arbitrates ownership of file paths and glob patterns between
// agents so that two agents never edit the same files at the same time.
package claims

import (
	"fmt"
	"time"
)

// DefaultTTL is applied when a claim request does not specify a lifetime.
const DefaultTTL = time.Hour

// Claim is a time-bounded reservation of a path or pattern by one agent.
type Claim struct {
	ID        string    `json:"id"`
	Agent     string    `json:"agent"`
	Pattern   string    `json:"pattern"`
	Exclusive bool      `json:"exclusive"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the claim has lapsed at now.
func (c Claim) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// String renders c for log lines and tool output.
func (c Claim) String() string {
	mode := "shared"
	if c.Exclusive {
		mode = "exclusive"
	}
	return fmt.Sprintf("%s (%s, %s until %s)", c.Pattern, c.Agent, mode, c.ExpiresAt.Format(time.RFC3339))
}

// blocks reports whether c prevents agent from claiming pattern.
func (c Claim) blocks(agent, pattern string, exclusive bool) bool {
	if c.Agent == agent {
		return false
	}
	if !c.Exclusive && !exclusive {
		return false
	}
	return Overlaps(c.Pattern, pattern)
}

// Observer receives registry change notifications.
type Observer interface {
	// ClaimsChanged is called after a mutation with the full set of live claims.
	ClaimsChanged(agent string, live []Claim)
	// ClaimRejected is called when a request fails because of a blocking claim.
	ClaimRejected(agent, path string, blocking Claim)
}

type nopObserver struct{}

func (nopObserver) ClaimsChanged(string, []Claim)        {}
func (nopObserver) ClaimRejected(string, string, Claim) {}
