package objective

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/questbots/internal/model"
)

func TestObjective_Contains(t *testing.T) {
	o := New(1, "bunker", model.NewLocation(10, 0, 0), 3, 0)

	assert.True(t, o.Contains(model.NewLocation(10, 0, 0)))
	assert.True(t, o.Contains(model.NewLocation(13, 0, 0)), "radius is inclusive")
	assert.False(t, o.Contains(model.NewLocation(13.1, 0, 0)))
	assert.Equal(t, "bunker#1", o.String())
	assert.Equal(t, "<none>", (*Objective)(nil).String())
}

func TestObjective_Reachable(t *testing.T) {
	o := New(1, "bunker", model.Location{}, 1, time.Second)
	assert.True(t, o.Reachable())
	o.SetReachable(false)
	assert.False(t, o.Reachable())
	assert.Equal(t, time.Second, o.MinTimeAtObjective())
}

func TestRegistry_Select(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Select(model.Location{}, nil)
	assert.False(t, ok, "empty registry")

	near := New(1, "near", model.NewLocation(1, 0, 0), 1, 0)
	mid := New(2, "mid", model.NewLocation(2, 0, 0), 1, 0)
	far := New(3, "far", model.NewLocation(3, 0, 0), 1, 0)
	farthest := New(4, "farthest", model.NewLocation(100, 0, 0), 1, 0)
	r.Add(near, mid, far, farthest)
	require.Equal(t, 4, r.Count())

	for range 50 {
		o, ok := r.Select(model.Location{}, nil)
		require.True(t, ok)
		assert.NotEqual(t, farthest, o, "only the nearest candidates are picked")
	}

	near.SetReachable(false)
	for range 50 {
		o, ok := r.Select(model.Location{}, mid)
		require.True(t, ok)
		assert.NotEqual(t, near, o, "unreachable skipped")
		assert.NotEqual(t, mid, o, "excluded skipped")
	}
}

func TestRegistry_TriggersAndClear(t *testing.T) {
	r := NewRegistry()
	r.Add(New(1, "a", model.Location{}, 1, 0))

	assert.False(t, r.HaveTriggersBeenFound())
	r.MarkTriggersFound()
	assert.True(t, r.HaveTriggersBeenFound())
	assert.Len(t, r.All(), 1)

	r.Clear()
	assert.False(t, r.HaveTriggersBeenFound())
	assert.Zero(t, r.Count())
}
