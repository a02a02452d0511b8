package spawn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSpawner struct {
	waves []int
	fail  map[int]bool
}

func (r *recordingSpawner) SpawnWave(_ context.Context, w *Wave) error {
	if r.fail[w.ID] {
		return errors.New("no spawn point")
	}
	r.waves = append(r.waves, w.ID)
	return nil
}

func TestStartGate_HoldAndRelease(t *testing.T) {
	gate := NewStartGate(DefaultSafetyDelay)
	a := NewWave(1, 3, false, 10*time.Second)
	b := NewWave(2, 1, true, 0)

	gate.Hold(a, b)
	require.True(t, gate.IsHeld())
	assert.Equal(t, 10*time.Second+DefaultSafetyDelay, a.EndTime())
	assert.Equal(t, DefaultSafetyDelay, b.EndTime())

	require.NoError(t, gate.Release(context.Background(), 4*time.Second, &recordingSpawner{}))
	assert.False(t, gate.IsHeld())
	assert.Equal(t, 14*time.Second, a.EndTime(), "delayed by exactly the hold time")
	assert.Equal(t, 4*time.Second, b.EndTime())
}

func TestStartGate_ReplaysMissedWaves(t *testing.T) {
	gate := NewStartGate(time.Minute)
	spawner := &recordingSpawner{}

	assert.False(t, gate.AddMissedWave(NewWave(1, 1, false, 0)), "open gate does not buffer")

	gate.Hold()
	assert.True(t, gate.AddMissedWave(NewWave(2, 1, true, 0)))
	assert.True(t, gate.AddMissedWave(NewWave(3, 2, false, 0)))
	assert.True(t, gate.AddMissedWave(NewWave(4, 2, false, 0)))
	assert.Equal(t, 3, gate.MissedWaves())

	require.NoError(t, gate.Release(context.Background(), time.Second, spawner))
	assert.Equal(t, []int{3, 4, 2}, spawner.waves, "regular waves before boss waves")
	assert.Zero(t, gate.MissedWaves())

	require.NoError(t, gate.Release(context.Background(), time.Second, spawner))
	assert.Len(t, spawner.waves, 3, "second release is a no-op")
}

func TestStartGate_ReleaseJoinsSpawnErrors(t *testing.T) {
	gate := NewStartGate(time.Minute)
	spawner := &recordingSpawner{fail: map[int]bool{1: true}}

	gate.Hold()
	gate.AddMissedWave(NewWave(1, 1, false, 0))
	gate.AddMissedWave(NewWave(2, 1, false, 0))

	err := gate.Release(context.Background(), 0, spawner)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missed wave 1")
	assert.Equal(t, []int{2}, spawner.waves, "a failing wave does not stop the replay")
}

func TestStartGate_Clear(t *testing.T) {
	gate := NewStartGate(time.Minute)
	w := NewWave(1, 1, false, 0)

	gate.Hold(w)
	gate.AddMissedWave(NewWave(2, 1, false, 0))
	gate.Clear()

	assert.False(t, gate.IsHeld())
	assert.Zero(t, gate.MissedWaves())

	spawner := &recordingSpawner{}
	require.NoError(t, gate.Release(context.Background(), 0, spawner))
	assert.Empty(t, spawner.waves)
	assert.Equal(t, time.Minute, w.EndTime(), "cleared timers are no longer moved")
}

func TestWaitForGenerators(t *testing.T) {
	t.Run("nothing pending", func(t *testing.T) {
		waited, err := WaitForGenerators(context.Background(), func() int { return 0 }, time.Millisecond)
		require.NoError(t, err)
		assert.False(t, waited)
	})

	t.Run("pending generators finish", func(t *testing.T) {
		remaining := 3
		waited, err := WaitForGenerators(context.Background(), func() int {
			if remaining > 0 {
				remaining--
			}
			return remaining
		}, time.Millisecond)
		require.NoError(t, err)
		assert.True(t, waited)
	})

	t.Run("context canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		waited, err := WaitForGenerators(ctx, func() int { return 1 }, time.Millisecond)
		assert.True(t, waited)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
