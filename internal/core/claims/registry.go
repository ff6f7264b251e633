package claims

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/colonyops/comb/internal/core/errs"
	"github.com/colonyops/comb/pkg/clock"
	"github.com/colonyops/comb/pkg/randid"
	"github.com/rs/zerolog"
)

// Request describes a batch of paths an agent wants to reserve.
type Request struct {
	Agent     string
	Paths     []string
	Exclusive bool
	Reason    string
	TTL       time.Duration // <= 0 uses the registry default
}

// Options configures a Registry. Zero values fall back to defaults.
type Options struct {
	Clock      clock.Clock
	Observer   Observer
	DefaultTTL time.Duration
}

// Registry is the in-memory claim table. It is safe for concurrent use; the
// conflict check and the insert run under one lock.
type Registry struct {
	mu     sync.Mutex
	claims []Claim
	clock  clock.Clock
	obs    Observer
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(log zerolog.Logger, opts Options) *Registry {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	return &Registry{
		clock: opts.Clock,
		obs:   opts.Observer,
		ttl:   opts.DefaultTTL,
		log:   log.With().Str("component", "claims").Logger(),
	}
}

// AddClaims reserves every path in req or none of them. Each path is checked
// against the live claims of other agents before anything is installed; the
// first conflict aborts the call with a *errs.ConflictError.
func (r *Registry) AddClaims(req Request) ([]Claim, error) {
	agent := strings.TrimSpace(req.Agent)
	if agent == "" {
		return nil, errs.Invalid("claim", "agent name is required")
	}
	if len(req.Paths) == 0 {
		return nil, errs.Invalid("claim", "at least one path is required")
	}

	patterns := make([]string, 0, len(req.Paths))
	for _, p := range req.Paths {
		if !ValidPattern(p) {
			return nil, errs.Invalid("claim", "malformed path or pattern %q", p)
		}
		n := Normalize(p)
		if !slices.Contains(patterns, n) {
			patterns = append(patterns, n)
		}
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = r.ttl
	}

	r.mu.Lock()
	now := r.clock.Now()
	r.sweepLocked(now)

	for _, p := range patterns {
		if blocking, ok := r.blockingLocked(agent, p, req.Exclusive); ok {
			r.mu.Unlock()
			r.log.Debug().
				Str("agent", agent).
				Str("path", p).
				Str("holder", blocking.Agent).
				Str("pattern", blocking.Pattern).
				Msg("claim rejected")
			r.obs.ClaimRejected(agent, p, blocking)
			return nil, &errs.ConflictError{
				Agent:   agent,
				Path:    p,
				Holder:  blocking.Agent,
				Pattern: blocking.Pattern,
				Shared:  !blocking.Exclusive,
			}
		}
	}

	added := make([]Claim, 0, len(patterns))
	for _, p := range patterns {
		// Re-claiming a pattern refreshes the agent's existing claim.
		r.claims = slices.DeleteFunc(r.claims, func(c Claim) bool {
			return c.Agent == agent && c.Pattern == p
		})
		c := Claim{
			ID:        randid.Prefixed("claim", 8),
			Agent:     agent,
			Pattern:   p,
			Exclusive: req.Exclusive,
			Reason:    req.Reason,
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
		}
		r.claims = append(r.claims, c)
		added = append(added, c)
	}
	live := slices.Clone(r.claims)
	r.mu.Unlock()

	r.log.Info().
		Str("agent", agent).
		Strs("paths", patterns).
		Bool("exclusive", req.Exclusive).
		Dur("ttl", ttl).
		Msg("claims added")
	r.obs.ClaimsChanged(agent, live)
	return added, nil
}

// ReleaseClaims removes every claim held by agent and returns how many were
// removed.
func (r *Registry) ReleaseClaims(agent string) int {
	return r.release(agent, func(c Claim) bool { return c.Agent == agent })
}

// ReleaseClaim removes the agent's claim on pattern. Returns false when the
// agent held no such claim.
func (r *Registry) ReleaseClaim(agent, pattern string) bool {
	pattern = Normalize(pattern)
	return r.release(agent, func(c Claim) bool {
		return c.Agent == agent && c.Pattern == pattern
	}) > 0
}

func (r *Registry) release(agent string, match func(Claim) bool) int {
	r.mu.Lock()
	before := len(r.claims)
	r.claims = slices.DeleteFunc(r.claims, match)
	removed := before - len(r.claims)
	live := slices.Clone(r.claims)
	r.mu.Unlock()

	if removed > 0 {
		r.log.Info().Str("agent", agent).Int("count", removed).Msg("claims released")
		r.obs.ClaimsChanged(agent, live)
	}
	return removed
}

// All returns every live claim.
func (r *Registry) All() []Claim {
	return r.filter(func(Claim) bool { return true })
}

// ForAgent returns the live claims held by agent.
func (r *Registry) ForAgent(agent string) []Claim {
	return r.filter(func(c Claim) bool { return c.Agent == agent })
}

// ForPath returns the live claims whose pattern overlaps path.
func (r *Registry) ForPath(path string) []Claim {
	path = Normalize(path)
	return r.filter(func(c Claim) bool { return Overlaps(c.Pattern, path) })
}

// IsPathClaimed reports whether any live claim overlaps path.
func (r *Registry) IsPathClaimed(path string) bool {
	return len(r.ForPath(path)) > 0
}

// CanClaim reports whether agent could claim path. When it cannot, the
// blocking claim is returned.
func (r *Registry) CanClaim(agent, path string, exclusive bool) (bool, *Claim) {
	path = Normalize(path)

	r.mu.Lock()
	removed := r.sweepLocked(r.clock.Now())
	blocking, found := r.blockingLocked(agent, path, exclusive)
	live := r.liveIfChanged(removed)
	r.mu.Unlock()

	r.notifySweep(removed, live)
	if found {
		return false, &blocking
	}
	return true, nil
}

// SweepExpired drops every expired claim and returns how many were removed.
func (r *Registry) SweepExpired() int {
	r.mu.Lock()
	removed := r.sweepLocked(r.clock.Now())
	live := r.liveIfChanged(removed)
	r.mu.Unlock()

	r.notifySweep(removed, live)
	return removed
}

func (r *Registry) filter(keep func(Claim) bool) []Claim {
	r.mu.Lock()
	removed := r.sweepLocked(r.clock.Now())
	out := make([]Claim, 0, len(r.claims))
	for _, c := range r.claims {
		if keep(c) {
			out = append(out, c)
		}
	}
	live := r.liveIfChanged(removed)
	r.mu.Unlock()

	r.notifySweep(removed, live)
	return out
}

func (r *Registry) blockingLocked(agent, pattern string, exclusive bool) (Claim, bool) {
	for _, c := range r.claims {
		if c.blocks(agent, pattern, exclusive) {
			return c, true
		}
	}
	return Claim{}, false
}

func (r *Registry) sweepLocked(now time.Time) int {
	before := len(r.claims)
	r.claims = slices.DeleteFunc(r.claims, func(c Claim) bool { return c.Expired(now) })
	return before - len(r.claims)
}

func (r *Registry) liveIfChanged(removed int) []Claim {
	if removed == 0 {
		return nil
	}
	return slices.Clone(r.claims)
}

func (r *Registry) notifySweep(removed int, live []Claim) {
	if removed == 0 {
		return
	}
	r.log.Debug().Int("count", removed).Msg("expired claims swept")
	r.obs.ClaimsChanged("", live)
}
