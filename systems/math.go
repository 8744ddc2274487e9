package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/swarmmind/components"
)

// epsilon is the shortest vector treated as having a direction.
const epsilon = 1e-9

// unitX is the fallback heading when no usable direction exists.
var unitX = components.Vec2{X: 1}

// unit returns v scaled to length 1, or fallback when v is degenerate.
func unit(v, fallback components.Vec2) components.Vec2 {
	n := r2.Norm(v)
	if n < epsilon || math.IsNaN(n) || math.IsInf(n, 0) {
		return fallback
	}
	return r2.Scale(1/n, v)
}

// rotate turns v counter-clockwise by angle radians.
func rotate(v components.Vec2, angle float64) components.Vec2 {
	sin, cos := math.Sincos(angle)
	return components.Vec2{X: v.X*cos - v.Y*sin, Y: v.X*sin + v.Y*cos}
}

// blend returns the normalized weighted sum w*a + (1-w)*b.
func blend(a, b components.Vec2, w float64, fallback components.Vec2) components.Vec2 {
	return unit(r2.Add(r2.Scale(w, a), r2.Scale(1-w, b)), fallback)
}

// distance returns the Euclidean distance between two points.
func distance(a, b components.Vec2) float64 {
	return r2.Norm(r2.Sub(a, b))
}

// bearing returns the angle of the vector from -> to.
func bearing(from, to components.Vec2) float64 {
	d := r2.Sub(to, from)
	return math.Atan2(d.Y, d.X)
}

// heading returns the angle of v.
func heading(v components.Vec2) float64 {
	return math.Atan2(v.Y, v.X)
}

// normalizeAngle wraps an angle to [-Pi, Pi].
func normalizeAngle(angle float64) float64 {
	angle = math.Mod(angle, 2*math.Pi)
	if angle > math.Pi {
		angle -= 2 * math.Pi
	} else if angle < -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}

// normalizeHeading wraps a heading to [0, 2*Pi).
func normalizeHeading(h float64) float64 {
	h = math.Mod(h, 2*math.Pi)
	if h < 0 {
		h += 2 * math.Pi
	}
	return h
}

// angleDiff returns the signed smallest difference a-b in [-Pi, Pi].
func angleDiff(a, b float64) float64 {
	return normalizeAngle(a - b)
}

// clamp01 clamps a value to the [0, 1] range.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
