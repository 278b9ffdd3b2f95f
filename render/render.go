/*
Package render turns the state of a physics world into frames: raster images,
downsampled centroid maps or flat feature vectors.
*/
package render

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/phil-mansfield/bouncing/geom"
	"github.com/phil-mansfield/bouncing/io"
	"github.com/phil-mansfield/bouncing/physics"
)

// CentroidDownsampling is the fraction of the arena size used by
// CentroidRenderer's canvas.
const CentroidDownsampling = 1.0 / 8

// Frame is a single rendered frame.
type Frame = io.Array

////////////////
// Interfaces //
////////////////

// Renderer draws the renderable bodies of a world. The returned Frame is
// owned by the renderer and is overwritten by the next call to Frame.
type Renderer interface {
	Frame(w physics.World) *Frame
	// Reset clears any state carried between frames.
	Reset()
	// Shape returns the shape of the frames the renderer produces.
	Shape() []int
}

// New returns the renderer for one of the representations in package io.
func New(f geom.Frame, representation, channels string) (Renderer, error) {
	switch representation {
	case io.RepresentationRaster:
		return NewRasterRenderer(f, channels)
	case io.RepresentationCentroid:
		return NewCentroidRenderer(f), nil
	case io.RepresentationFeatures:
		return NewFeatureVectorRenderer(f), nil
	}
	return nil, fmt.Errorf("unknown representation '%s'", representation)
}

////////////
// Raster //
////////////

// RasterRenderer draws every renderable circle as a filled disk on a
// single-channel uint8 image.
type RasterRenderer struct {
	frame  geom.Frame
	shape  []int
	out    *Frame
	canvas *Canvas
}

// NewRasterRenderer returns a renderer with frames of shape (1, H, W) if
// channels is io.ChannelsFirst or (H, W, 1) if it is io.ChannelsLast.
func NewRasterRenderer(f geom.Frame, channels string) (*RasterRenderer, error) {
	r := &RasterRenderer{frame: f}
	switch channels {
	case io.ChannelsFirst:
		r.shape = []int{1, f.Height, f.Width}
	case io.ChannelsLast:
		r.shape = []int{f.Height, f.Width, 1}
	default:
		return nil, fmt.Errorf("unknown channel order '%s'", channels)
	}
	r.Reset()
	return r, nil
}

func (r *RasterRenderer) Frame(w physics.World) *Frame {
	r.canvas.Clear()
	for _, b := range physics.Renderable(w) {
		for _, c := range b.Circles() {
			p := r.frame.ToScreen(r2.Add(b.Position, c.Center))
			PlotCircle(r.canvas, r.frame.UnitsToPixels(c.Radius), p.X, p.Y)
		}
	}
	return r.out
}

// With a single channel both orders share a memory layout, so the canvas can
// draw straight into the frame.
func (r *RasterRenderer) Reset() {
	r.out = io.NewArray(io.Uint8, r.shape...)
	r.canvas = &Canvas{Width: r.frame.Width, Height: r.frame.Height, Pix: r.out.Uint8s}
}

func (r *RasterRenderer) Shape() []int { return append([]int{}, r.shape...) }

//////////////
// Centroid //
//////////////

// CentroidRenderer marks the center of each renderable body with a single
// pixel on a canvas downsampled by CentroidDownsampling. Frames have shape
// (H', W').
type CentroidRenderer struct {
	frame        geom.Frame
	downsampling float64
	out          *Frame
	canvas       *Canvas
}

func NewCentroidRenderer(f geom.Frame) *CentroidRenderer {
	return &CentroidRenderer{frame: f}
}

func (r *CentroidRenderer) Frame(w physics.World) *Frame {
	if r.downsampling == 0 {
		r.downsampling = CentroidDownsampling
		r.Reset()
	}

	r.canvas.Clear()
	for _, b := range physics.Renderable(w) {
		p := r.frame.ToScreen(b.Position)
		x := int(float64(p.X) * r.downsampling)
		y := int(float64(p.Y) * r.downsampling)
		r.canvas.Set(x, y, Ink)
	}
	return r.out
}

func (r *CentroidRenderer) Reset() {
	if r.downsampling == 0 {
		return
	}
	shape := r.Shape()
	r.out = io.NewArray(io.Uint8, shape...)
	r.canvas = &Canvas{Width: shape[1], Height: shape[0], Pix: r.out.Uint8s}
}

func (r *CentroidRenderer) Shape() []int {
	ds := r.downsampling
	if ds == 0 {
		ds = CentroidDownsampling
	}
	h := max(int(float64(r.frame.Height)*ds), 1)
	w := max(int(float64(r.frame.Width)*ds), 1)
	return []int{h, w}
}

////////////////////
// Feature vector //
////////////////////

// FeatureVectorRenderer writes (x, y, vx, vy) for each renderable body, in
// creation order, into a flat float32 vector. Positions are in the screen
// frame and velocities are in world units.
type FeatureVectorRenderer struct {
	frame geom.Frame
	out   *Frame
}

func NewFeatureVectorRenderer(f geom.Frame) *FeatureVectorRenderer {
	return &FeatureVectorRenderer{frame: f, out: io.NewArray(io.Float32, 0)}
}

func (r *FeatureVectorRenderer) Frame(w physics.World) *Frame {
	bodies := physics.Renderable(w)
	if n := 4 * len(bodies); n != r.out.Len() {
		r.out = io.NewArray(io.Float32, n)
	}

	for i, b := range bodies {
		p := r.frame.ToScreenVec(b.Position)
		xs := r.out.Float32s[4*i : 4*i+4]
		xs[0], xs[1] = float32(p.X), float32(p.Y)
		xs[2], xs[3] = float32(b.Velocity.X), float32(b.Velocity.Y)
	}
	return r.out
}

func (r *FeatureVectorRenderer) Reset() { r.out.Clear() }

// Shape returns the shape of the most recent frame. Its length depends on the
// number of renderable bodies in the world.
func (r *FeatureVectorRenderer) Shape() []int {
	return append([]int{}, r.out.Shape...)
}
