package claims

import (
	"sync"
	"testing"
	"time"

	"github.com/colonyops/comb/internal/core/errs"
	"github.com/colonyops/comb/pkg/clock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu       sync.Mutex
	changes  [][]Claim
	rejected []Claim
}

func (o *recordingObserver) ClaimsChanged(_ string, live []Claim) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changes = append(o.changes, live)
}

func (o *recordingObserver) ClaimRejected(_, _ string, blocking Claim) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, blocking)
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRegistry(t *testing.T) (*Registry, *clock.FakeClock, *recordingObserver) {
	t.Helper()
	clk := clock.Fake(epoch)
	obs := &recordingObserver{}
	reg := NewRegistry(zerolog.Nop(), Options{Clock: clk, Observer: obs})
	return reg, clk, obs
}

func TestRegistry_AddClaims(t *testing.T) {
	t.Run("installs one claim per path", func(t *testing.T) {
		reg, _, obs := newTestRegistry(t)

		added, err := reg.AddClaims(Request{Agent: "a", Paths: []string{"src/a.go", "./src/b.go"}, Exclusive: true, Reason: "refactor"})
		require.NoError(t, err)
		require.Len(t, added, 2)

		assert.Equal(t, "src/b.go", added[1].Pattern)
		assert.Equal(t, "refactor", added[0].Reason)
		assert.Equal(t, epoch.Add(DefaultTTL), added[0].ExpiresAt)
		assert.NotEqual(t, added[0].ID, added[1].ID)
		assert.Len(t, reg.All(), 2)
		assert.Len(t, obs.changes, 1)
	})

	t.Run("requires agent and paths", func(t *testing.T) {
		reg, _, _ := newTestRegistry(t)

		_, err := reg.AddClaims(Request{Paths: []string{"a"}})
		assert.True(t, errs.IsValidation(err))

		_, err = reg.AddClaims(Request{Agent: "a"})
		assert.True(t, errs.IsValidation(err))

		_, err = reg.AddClaims(Request{Agent: "a", Paths: []string{"src/[oops"}})
		assert.True(t, errs.IsValidation(err))
	})

	t.Run("exclusive globstar blocks nested pattern", func(t *testing.T) {
		reg, _, obs := newTestRegistry(t)

		_, err := reg.AddClaims(Request{Agent: "a", Paths: []string{"src/**"}, Exclusive: true})
		require.NoError(t, err)

		_, err = reg.AddClaims(Request{Agent: "b", Paths: []string{"src/components/*.tsx"}, Exclusive: true})
		var conflict *errs.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "a", conflict.Holder)
		assert.Equal(t, "src/**", conflict.Pattern)
		require.Len(t, obs.rejected, 1)

		_, err = reg.AddClaims(Request{Agent: "b", Paths: []string{"src/components/*.tsx"}})
		assert.True(t, errs.IsConflict(err), "shared request still conflicts with an exclusive holder")
	})

	t.Run("shared claims coexist", func(t *testing.T) {
		reg, _, _ := newTestRegistry(t)

		_, err := reg.AddClaims(Request{Agent: "a", Paths: []string{"src/**"}})
		require.NoError(t, err)

		_, err = reg.AddClaims(Request{Agent: "b", Paths: []string{"src/components/*.tsx"}})
		require.NoError(t, err)

		_, err = reg.AddClaims(Request{Agent: "c", Paths: []string{"src/app.go"}, Exclusive: true})
		var conflict *errs.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.True(t, conflict.Shared)
	})

	t.Run("own claims never conflict", func(t *testing.T) {
		reg, _, _ := newTestRegistry(t)

		_, err := reg.AddClaims(Request{Agent: "a", Paths: []string{"src/**"}, Exclusive: true})
		require.NoError(t, err)
		_, err = reg.AddClaims(Request{Agent: "a", Paths: []string{"src/main.go"}, Exclusive: true})
		require.NoError(t, err)
	})

	t.Run("all or nothing", func(t *testing.T) {
		reg, _, _ := newTestRegistry(t)

		_, err := reg.AddClaims(Request{Agent: "a", Paths: []string{"docs/**"}, Exclusive: true})
		require.NoError(t, err)

		_, err = reg.AddClaims(Request{Agent: "b", Paths: []string{"src/a.go", "docs/readme.md"}, Exclusive: true})
		require.Error(t, err)

		assert.Empty(t, reg.ForAgent("b"), "earlier paths in a rejected batch must not be installed")
	})

	t.Run("reclaim refreshes", func(t *testing.T) {
		reg, clk, _ := newTestRegistry(t)

		_, err := reg.AddClaims(Request{Agent: "a", Paths: []string{"src/a.go"}, TTL: time.Minute})
		require.NoError(t, err)

		clk.Advance(30 * time.Second)
		_, err = reg.AddClaims(Request{Agent: "a", Paths: []string{"src/a.go"}, TTL: time.Minute, Exclusive: true})
		require.NoError(t, err)

		claims := reg.ForAgent("a")
		require.Len(t, claims, 1)
		assert.True(t, claims[0].Exclusive)
		assert.Equal(t, epoch.Add(90*time.Second), claims[0].ExpiresAt)
	})
}

func TestRegistry_TTL(t *testing.T) {
	reg, clk, obs := newTestRegistry(t)

	_, err := reg.AddClaims(Request{Agent: "a", Paths: []string{"src/main.go"}, TTL: time.Second})
	require.NoError(t, err)
	assert.Len(t, reg.ForPath("src/main.go"), 1)

	clk.Advance(2 * time.Second)

	assert.Empty(t, reg.ForPath("src/main.go"))
	assert.False(t, reg.IsPathClaimed("src/main.go"))
	assert.Len(t, obs.changes, 2, "lazy sweep reports the removal")
}

func TestRegistry_Release(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	_, err := reg.AddClaims(Request{Agent: "a", Paths: []string{"src/a.go", "src/b.go"}, Exclusive: true})
	require.NoError(t, err)
	_, err = reg.AddClaims(Request{Agent: "b", Paths: []string{"docs"}, Exclusive: true})
	require.NoError(t, err)

	assert.True(t, reg.ReleaseClaim("a", "./src/a.go"))
	assert.False(t, reg.ReleaseClaim("a", "src/a.go"))
	assert.Equal(t, 1, reg.ReleaseClaims("a"))
	assert.Equal(t, 0, reg.ReleaseClaims("a"))

	all := reg.All()
	require.Len(t, all, 1)
	assert.Equal(t, "b", all[0].Agent)
}

func TestRegistry_CanClaim(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	_, err := reg.AddClaims(Request{Agent: "a", Paths: []string{"src/*.go"}, Exclusive: true})
	require.NoError(t, err)

	ok, blocking := reg.CanClaim("b", "src/main.go", false)
	assert.False(t, ok)
	require.NotNil(t, blocking)
	assert.Equal(t, "a", blocking.Agent)

	ok, blocking = reg.CanClaim("b", "src/main.ts", true)
	assert.True(t, ok)
	assert.Nil(t, blocking)

	ok, _ = reg.CanClaim("a", "src/main.go", true)
	assert.True(t, ok)
}

func TestRegistry_EmptyPathMatchesNothing(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	_, err := reg.AddClaims(Request{Agent: "a", Paths: []string{"src/**", "README.md"}, Exclusive: true})
	require.NoError(t, err)

	assert.Empty(t, reg.ForPath(""))
	assert.Empty(t, reg.ForPath("./"))
	assert.False(t, reg.IsPathClaimed(""))
	assert.True(t, reg.IsPathClaimed("src/main.go"))
}

func TestRegistry_SweepExpired(t *testing.T) {
	reg, clk, _ := newTestRegistry(t)

	_, err := reg.AddClaims(Request{Agent: "a", Paths: []string{"a"}, TTL: time.Minute})
	require.NoError(t, err)
	_, err = reg.AddClaims(Request{Agent: "b", Paths: []string{"b"}, TTL: time.Hour})
	require.NoError(t, err)

	clk.Advance(time.Minute)
	assert.Equal(t, 1, reg.SweepExpired())
	assert.Equal(t, 0, reg.SweepExpired())
	assert.Len(t, reg.All(), 1)
}
