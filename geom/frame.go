/*
Package geom contains the coordinate-frame conversions and the random
spawn/trajectory geometry used to populate bouncing ball arenas.

Two frames are used throughout. The screen frame has its origin in the top
left corner of the arena, x increasing to the right, y increasing downwards
and integer pixel units. The world frame is the one the physics engine sees:
its origin is the center of the arena, y increases upwards and one unit is PPM
pixels.
*/
package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultPPM is the number of pixels in a single world unit.
const DefaultPPM = 1.0

// Pixel is an integer location in the screen frame.
type Pixel struct {
	X, Y int
}

// Frame converts between the screen and world frames of an arena with a fixed
// size.
type Frame struct {
	Height, Width int
	PPM           float64
}

// NewFrame returns a Frame for a height x width arena, or an error if the
// arena dimensions or scale are not positive.
func NewFrame(height, width int, ppm float64) (Frame, error) {
	if height <= 0 || width <= 0 {
		return Frame{}, fmt.Errorf(
			"arena must have positive dimensions, got %d x %d", height, width,
		)
	} else if ppm <= 0 || math.IsNaN(ppm) || math.IsInf(ppm, 0) {
		return Frame{}, fmt.Errorf("pixels per unit must be positive, got %g", ppm)
	}
	return Frame{Height: height, Width: width, PPM: ppm}, nil
}

// PixelsToUnits converts a screen distance to a world distance.
func (f Frame) PixelsToUnits(d float64) float64 { return d / f.PPM }

// UnitsToPixels converts a world distance to the nearest whole number of
// pixels.
func (f Frame) UnitsToPixels(d float64) int { return round(d * f.PPM) }

// ToWorld converts a screen-frame position to the world frame.
func (f Frame) ToWorld(p r2.Vec) r2.Vec {
	return r2.Vec{
		X: f.PixelsToUnits(p.X - float64(f.Width)/2),
		Y: f.PixelsToUnits(float64(f.Height)/2 - p.Y),
	}
}

// ToScreen converts a world-frame position to the nearest screen pixel.
func (f Frame) ToScreen(p r2.Vec) Pixel {
	sp := f.ToScreenVec(p)
	return Pixel{X: round(sp.X), Y: round(sp.Y)}
}

// ToScreenVec converts a world-frame position to the screen frame without
// rounding.
func (f Frame) ToScreenVec(p r2.Vec) r2.Vec {
	return r2.Vec{
		X: p.X*f.PPM + float64(f.Width)/2,
		Y: float64(f.Height)/2 - p.Y*f.PPM,
	}
}

// VelocityToWorld converts a screen-frame velocity (pixels per second, y down)
// to the world frame. There is no positional offset, only a change of scale
// and the y flip.
func (f Frame) VelocityToWorld(v r2.Vec) r2.Vec {
	return r2.Vec{X: f.PixelsToUnits(v.X), Y: -f.PixelsToUnits(v.Y)}
}

// VelocityToScreen is the inverse of VelocityToWorld.
func (f Frame) VelocityToScreen(v r2.Vec) r2.Vec {
	return r2.Vec{X: v.X * f.PPM, Y: -v.Y * f.PPM}
}

// Contains returns true if p lies inside the screen.
func (f Frame) Contains(p Pixel) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < f.Width && p.Y < f.Height
}

// round rounds x to the nearest integer, with halves rounded away from zero.
func round(x float64) int {
	return int(math.Round(x))
}
