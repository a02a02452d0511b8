package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocation_Distance(t *testing.T) {
	tests := []struct {
		name string
		a, b Location
		want float64
	}{
		{"same point", NewLocation(1, 1, 1), NewLocation(1, 1, 1), 0},
		{"x axis", NewLocation(0, 0, 0), NewLocation(3, 0, 0), 3},
		{"3-4-5", NewLocation(0, 0, 0), NewLocation(3, 4, 0), 5},
		{"3d", NewLocation(1, 2, 3), NewLocation(3, 5, 9), 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.a.Distance(tt.b), 1e-9)
			assert.InDelta(t, tt.want*tt.want, tt.a.DistanceSquared(tt.b), 1e-9)
		})
	}
}

func TestLocation_WithCoordinates(t *testing.T) {
	orig := NewLocation(1, 2, 3)
	moved := orig.WithCoordinates(4, 5, 6)

	assert.Equal(t, NewLocation(1, 2, 3), orig, "original must not change")
	assert.Equal(t, NewLocation(4, 5, 6), moved)
}

func TestLocation_MoveToward(t *testing.T) {
	from := NewLocation(0, 0, 0)
	to := NewLocation(10, 0, 0)

	assert.Equal(t, NewLocation(4, 0, 0), from.MoveToward(to, 4))
	assert.Equal(t, to, from.MoveToward(to, 25), "overshoot clamps to target")
	assert.Equal(t, to, to.MoveToward(to, 1))
}
