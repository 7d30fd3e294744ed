package registry_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triviahub/triviad/internal/registry"
)

func TestRegistry_SetName(t *testing.T) {
	tests := map[string]struct {
		raw  string
		want string
	}{
		"plain name is kept":                  {raw: "Ali", want: "Ali"},
		"surrounding whitespace is trimmed":   {raw: "  Sara \t", want: "Sara"},
		"long name is truncated to 15 runes":  {raw: strings.Repeat("x", 40), want: strings.Repeat("x", 15)},
		"multi-byte runes count as one":       {raw: strings.Repeat("é", 20), want: strings.Repeat("é", 15)},
		"empty name falls back to default":    {raw: "", want: "anonymous"},
		"blank name falls back to default":    {raw: "   \t  ", want: "anonymous"},
		"trim applies before the truncation":  {raw: "   Bo   ", want: "Bo"},
		"name of exactly 15 runes is intact":  {raw: strings.Repeat("y", 15), want: strings.Repeat("y", 15)},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			r := registry.New()
			r.Join("p1")
			r.SetName("p1", tt.raw)

			snap := r.Snapshot()
			require.Len(t, snap, 1)
			assert.Equal(t, tt.want, snap[0].Name)
		})
	}
}

func TestRegistry_SetNameUnknownIdentity(t *testing.T) {
	r := registry.New()
	r.Join("p1")

	r.SetName("ghost", "Boo")

	snap := r.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "p1", snap[0].ID)
}

func TestRegistry_JoinLeave(t *testing.T) {
	r := registry.New()

	r.Join("p1")
	r.Join("p2")
	r.Join("p1") // idempotent
	assert.Equal(t, 2, r.Count())

	r.SetName("p1", "Ali")
	r.Join("p1")
	assert.Equal(t, "Ali", r.Snapshot()[0].Name, "re-join must preserve the existing record")

	r.Leave("p2")
	r.Leave("p2") // absent, no-op
	assert.Equal(t, 1, r.Count())

	snap := r.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "p1", snap[0].ID)
}

func TestRegistry_SnapshotIsACopy(t *testing.T) {
	r := registry.New()
	r.Join("p1")
	r.AddScore("p1", 100)

	snap := r.Snapshot()
	snap[0].Score = 9999
	snap[0].Name = "mutated"

	after := r.Snapshot()
	assert.Equal(t, 100, after[0].Score)
	assert.Equal(t, "anonymous", after[0].Name)
}

func TestRegistry_SnapshotKeepsJoinOrder(t *testing.T) {
	r := registry.New()
	for _, id := range []string{"c", "a", "b"} {
		r.Join(id)
	}

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "c", snap[0].ID)
	assert.Equal(t, "a", snap[1].ID)
	assert.Equal(t, "b", snap[2].ID)
}

func TestRegistry_RoundFlagsAndScores(t *testing.T) {
	r := registry.New()
	r.Join("p1")
	r.Join("p2")

	assert.True(t, r.MarkAnswered("p1"))
	assert.False(t, r.MarkAnswered("p1"), "second submission must be rejected")
	assert.False(t, r.MarkAnswered("ghost"))

	r.AddScore("p1", 240)
	r.AddScore("p1", 110)
	r.AddScore("ghost", 50)

	r.ResetRoundFlags()
	assert.True(t, r.MarkAnswered("p1"), "flag must reset on a new round")

	snap := r.Snapshot()
	assert.Equal(t, 350, snap[0].Score)
	assert.Equal(t, 0, snap[1].Score)

	r.ResetScores()
	for _, p := range r.Snapshot() {
		assert.Equal(t, 0, p.Score)
	}
}
