package geom

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r2"
)

const (
	// OutsideTolerance is the margin, in pixels, kept between a spawn point
	// and the rectangle it must avoid.
	OutsideTolerance = 3.0
	// CornerInset is how far, in pixels, each side of the target rectangle is
	// pulled inwards before a trajectory is aimed through it.
	CornerInset = 10.0
)

// Rect is an axis-aligned rectangle in the screen frame. X and Y give its
// top-left corner.
type Rect struct {
	X, Y, W, H float64
}

// Center returns the center of the rectangle.
func (r Rect) Center() r2.Vec {
	return r2.Vec{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Expand returns a copy of r with each side moved outwards by d. A negative d
// shrinks the rectangle.
func (r Rect) Expand(d float64) Rect {
	return Rect{r.X - d, r.Y - d, r.W + 2*d, r.H + 2*d}
}

// ContainsOpen returns true if p lies strictly inside r.
func (r Rect) ContainsOpen(p r2.Vec) bool {
	return p.X > r.X && p.X < r.X+r.W && p.Y > r.Y && p.Y < r.Y+r.H
}

// Fits returns true if the rectangle, expanded by OutsideTolerance, leaves
// room above or below it inside an h x w screen.
func (r Rect) Fits(h, w int) bool {
	return r.W > 0 && r.H > 0 && r.X >= 0 && r.Y >= 0 &&
		r.X+r.W <= float64(w) && r.Y+r.H <= float64(h) &&
		float64(h)-r.H-2*OutsideTolerance > 0
}

// RandomPosOutsideRect returns a random screen position inside an h x w
// screen which is not inside rect expanded by OutsideTolerance. The caller is
// responsible for checking that rect.Fits(h, w).
func RandomPosOutsideRect(gen *rand.Rand, h, w int, rect Rect) r2.Vec {
	tol := OutsideTolerance
	x := gen.Float64() * float64(w)

	var y float64
	if rect.X-tol < x && x < rect.X+rect.W+tol {
		// Sample from the column with the rectangle's span cut out of it and
		// shift anything below the cut past the rectangle.
		empty := float64(h) - rect.H - 2*tol
		y = gen.Float64() * empty
		if y > rect.Y-tol {
			y += rect.H + 2*tol
		}
	} else {
		y = gen.Float64() * float64(h)
	}

	return r2.Vec{X: x, Y: y}
}

// RandomTrajectoryThroughRect returns a random unit vector such that the ray
// starting at pos and moving along it passes through rect.
//
// The rectangle is shrunk by CornerInset on each side (never by more than a
// quarter of a side) so that trajectories pass through its interior rather
// than clipping a corner. The two corners which bound the visibility cone from
// pos are picked from the region pos lies in, and an angle is drawn uniformly
// from inside that cone. If pos is inside the shrunk rectangle every direction
// works, and a uniformly random one is returned.
func RandomTrajectoryThroughRect(gen *rand.Rand, pos r2.Vec, rect Rect) r2.Vec {
	inner := insetRect(rect)
	minX, maxX := inner.X, inner.X+inner.W
	minY, maxY := inner.Y, inner.Y+inner.H

	// Corners are indexed in the order (min, min), (min, max), (max, max),
	// (max, min).
	corners := [4]r2.Vec{
		{X: minX, Y: minY}, {X: minX, Y: maxY},
		{X: maxX, Y: maxY}, {X: maxX, Y: minY},
	}

	var i1, i2 int
	switch {
	case pos.X < minX && pos.Y < minY:
		i1, i2 = 1, 3
	case pos.X < minX && pos.Y > maxY:
		i1, i2 = 0, 2
	case pos.X < minX:
		i1, i2 = 0, 1
	case pos.X > maxX && pos.Y < minY:
		i1, i2 = 0, 2
	case pos.X > maxX && pos.Y > maxY:
		i1, i2 = 1, 3
	case pos.X > maxX:
		i1, i2 = 2, 3
	case pos.Y < minY:
		i1, i2 = 0, 3
	case pos.Y > maxY:
		i1, i2 = 1, 2
	default:
		theta := 2 * math.Pi * gen.Float64()
		return r2.Vec{X: math.Cos(theta), Y: math.Sin(theta)}
	}

	v1, v2 := r2.Sub(corners[i1], pos), r2.Sub(corners[i2], pos)
	alpha1, alpha2 := math.Atan2(v1.Y, v1.X), math.Atan2(v2.Y, v2.X)
	alpha12 := angleBetween(v1, v2)
	if alpha1 > alpha2 {
		alpha1, alpha2 = alpha2, alpha1
	}

	theta := gen.Float64() * alpha12
	if alpha1 < -math.Pi/2 && alpha2 > math.Pi/2 {
		// The cone straddles the negative x axis, so it runs from alpha2 up
		// through pi and wraps around to alpha1.
		theta += alpha2
	} else {
		theta += alpha1
	}

	return r2.Vec{X: math.Cos(theta), Y: math.Sin(theta)}
}

// insetRect shrinks rect by CornerInset on each side, clamped to a quarter of
// the side length.
func insetRect(rect Rect) Rect {
	dx := math.Min(CornerInset, rect.W/4)
	dy := math.Min(CornerInset, rect.H/4)
	return Rect{rect.X + dx, rect.Y + dy, rect.W - 2*dx, rect.H - 2*dy}
}

// angleBetween returns the unsigned angle between two vectors in [0, pi].
func angleBetween(v1, v2 r2.Vec) float64 {
	c := r2.Cos(v1, v2)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}

// RayIntersectsRect returns true if the ray starting at p and moving along dir
// touches the closed rectangle rect.
func RayIntersectsRect(p, dir r2.Vec, rect Rect) bool {
	tMin, tMax := 0.0, math.Inf(+1)

	lo := [2]float64{rect.X, rect.Y}
	hi := [2]float64{rect.X + rect.W, rect.Y + rect.H}
	ps := [2]float64{p.X, p.Y}
	ds := [2]float64{dir.X, dir.Y}

	for k := 0; k < 2; k++ {
		if ds[k] == 0 {
			if ps[k] < lo[k] || ps[k] > hi[k] {
				return false
			}
			continue
		}
		t1, t2 := (lo[k]-ps[k])/ds[k], (hi[k]-ps[k])/ds[k]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin, tMax = math.Max(tMin, t1), math.Min(tMax, t2)
		if tMin > tMax {
			return false
		}
	}
	return true
}
