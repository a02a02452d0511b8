package model

import "math"

// Location is a point in world space.
// Value type, passed by value (immutable).
type Location struct {
	X float64
	Y float64
	Z float64
}

// NewLocation creates a Location with the given coordinates.
func NewLocation(x, y, z float64) Location {
	return Location{X: x, Y: y, Z: z}
}

// WithCoordinates returns a new Location with updated coordinates (immutable pattern).
func (l Location) WithCoordinates(x, y, z float64) Location {
	l.X = x
	l.Y = y
	l.Z = z
	return l
}

// DistanceSquared returns the squared distance to another point (no sqrt, for hot paths).
func (l Location) DistanceSquared(other Location) float64 {
	dx := l.X - other.X
	dy := l.Y - other.Y
	dz := l.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}

// Distance returns the euclidean distance to another point.
func (l Location) Distance(other Location) float64 {
	return math.Sqrt(l.DistanceSquared(other))
}

// MoveToward returns the point reached after travelling at most step units toward target.
func (l Location) MoveToward(target Location, step float64) Location {
	dist := l.Distance(target)
	if dist <= step || dist == 0 {
		return target
	}
	k := step / dist
	return Location{
		X: l.X + (target.X-l.X)*k,
		Y: l.Y + (target.Y-l.Y)*k,
		Z: l.Z + (target.Z-l.Z)*k,
	}
}
