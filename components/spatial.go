package components

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Vec2 is a point or direction on the ground plane.
// X is world x; Y carries world z (the game plane is x/z, height is ignored).
type Vec2 = r2.Vec

// V builds a Vec2 from world x/z coordinates.
func V(x, z float64) Vec2 {
	return Vec2{X: x, Y: z}
}

// Polar returns the point at the given angle and distance from the origin.
func Polar(angle, dist float64) Vec2 {
	return Vec2{X: math.Cos(angle) * dist, Y: math.Sin(angle) * dist}
}
