package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/phil-mansfield/bouncing/geom"
	"github.com/phil-mansfield/bouncing/io"
	"github.com/phil-mansfield/bouncing/physics"
)

// bbox returns the bounding box of the lit pixels on a canvas.
func bbox(c *Canvas) (x0, y0, x1, y1 int) {
	x0, y0, x1, y1 = c.Width, c.Height, -1, -1
	for y := 0; y < c.Height; y++ {
		for x := 0; x < c.Width; x++ {
			if c.At(x, y) == 0 {
				continue
			}
			x0, y0 = min(x0, x), min(y0, y)
			x1, y1 = max(x1, x), max(y1, y)
		}
	}
	return x0, y0, x1, y1
}

func count(c *Canvas) int {
	n := 0
	for _, p := range c.Pix {
		if p != 0 {
			n++
		}
	}
	return n
}

func TestPlotCircleBoundingBox(t *testing.T) {
	for r := 0; r <= 8; r++ {
		c := NewCanvas(48, 64)
		PlotCircle(c, r, 30, 20)

		x0, y0, x1, y1 := bbox(c)
		assert.Equal(t, [4]int{30 - r, 20 - r, 30 + r, 20 + r},
			[4]int{x0, y0, x1, y1}, "radius %d", r)
	}
}

func TestPlotCircleFilled(t *testing.T) {
	c := NewCanvas(48, 64)
	PlotCircle(c, 5, 30, 20)

	// Every row of the disk is a single contiguous span.
	for y := 15; y <= 25; y++ {
		start, end := -1, -1
		for x := 0; x < c.Width; x++ {
			if c.At(x, y) == Ink {
				if start < 0 {
					start = x
				}
				end = x
			}
		}
		require.True(t, start >= 0, "row %d is empty", y)
		for x := start; x <= end; x++ {
			assert.Equal(t, Ink, c.At(x, y), "gap at (%d, %d)", x, y)
		}
	}

	assert.Equal(t, Ink, c.At(30, 20))
	assert.Equal(t, uint8(0), c.At(25, 15))
}

func TestPlotCircleClamps(t *testing.T) {
	c := NewCanvas(10, 10)
	assert.NotPanics(t, func() { PlotCircle(c, 5, 0, 0) })
	assert.NotPanics(t, func() { PlotCircle(c, 5, 9, 9) })
	assert.NotPanics(t, func() { PlotCircle(c, 20, -30, 40) })

	c.Clear()
	PlotCircle(c, 3, -1, 5)
	// Columns left of the canvas land on column 0.
	assert.Equal(t, Ink, c.At(0, 5))
	assert.Equal(t, Ink, c.At(2, 5))
	assert.Equal(t, uint8(0), c.At(3, 5))

	c.Clear()
	PlotCircle(c, 2, 5, -5)
	// The disk lies entirely above the canvas, so it is squashed onto row 0.
	x0, y0, x1, y1 := bbox(c)
	assert.Equal(t, [4]int{3, 0, 7, 0}, [4]int{x0, y0, x1, y1})
}

func TestPlotCircleNegativeRadius(t *testing.T) {
	c := NewCanvas(10, 10)
	PlotCircle(c, -1, 5, 5)
	assert.Zero(t, count(c))
}

func newWorld(t *testing.T, f geom.Frame, balls ...r2.Vec) physics.World {
	w := physics.NewBox2DWorld()
	_, err := w.CreateStaticBody(physics.BodyDef{
		Tag:    physics.Tag{Name: "occlusion", Kind: physics.Obstacle},
		Shapes: []physics.Shape{physics.Box(5, 5)},
	})
	require.NoError(t, err)

	for i, p := range balls {
		_, err := w.CreateDynamicBody(physics.BodyDef{
			Tag:      physics.Tag{Name: "ball", Kind: physics.Ball},
			Position: f.ToWorld(p),
			Velocity: r2.Vec{X: float64(i + 1), Y: -2},
			Shapes:   []physics.Shape{physics.Circle{Radius: f.PixelsToUnits(5)}},
			Material: physics.Elastic,
		})
		require.NoError(t, err)
	}
	return w
}

func TestRasterRenderer(t *testing.T) {
	f, err := geom.NewFrame(48, 64, 1)
	require.NoError(t, err)
	w := newWorld(t, f, r2.Vec{X: 20, Y: 20}, r2.Vec{X: 45, Y: 30})

	r, err := NewRasterRenderer(f, io.ChannelsFirst)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 48, 64}, r.Shape())

	frame := r.Frame(w)
	assert.Equal(t, []int{1, 48, 64}, frame.Shape)
	assert.Equal(t, io.Uint8, frame.Type)

	c := &Canvas{Width: 64, Height: 48, Pix: frame.Uint8s}
	assert.Equal(t, Ink, c.At(20, 20))
	assert.Equal(t, Ink, c.At(45, 30))
	// The obstacle is not drawn.
	assert.Equal(t, uint8(0), c.At(32, 24))
	assert.Equal(t, 2*count(circleCanvas(5)), frame.NonZero())

	last, err := NewRasterRenderer(f, io.ChannelsLast)
	require.NoError(t, err)
	assert.Equal(t, []int{48, 64, 1}, last.Frame(w).Shape)
	assert.Equal(t, frame.Uint8s, last.Frame(w).Uint8s)

	_, err = NewRasterRenderer(f, "Sideways")
	assert.Error(t, err)
}

func circleCanvas(r int) *Canvas {
	c := NewCanvas(4*r, 4*r)
	PlotCircle(c, r, 2*r, 2*r)
	return c
}

func TestRasterRendererEmptyWorld(t *testing.T) {
	f, err := geom.NewFrame(48, 64, 1)
	require.NoError(t, err)

	r, err := NewRasterRenderer(f, io.ChannelsFirst)
	require.NoError(t, err)
	assert.Zero(t, r.Frame(physics.NewBox2DWorld()).NonZero())
}

func TestCentroidRenderer(t *testing.T) {
	f, err := geom.NewFrame(48, 64, 1)
	require.NoError(t, err)
	w := newWorld(t, f, r2.Vec{X: 20, Y: 20}, r2.Vec{X: 63, Y: 47})

	r := NewCentroidRenderer(f)
	assert.Equal(t, []int{6, 8}, r.Shape())

	frame := r.Frame(w)
	require.Equal(t, []int{6, 8}, frame.Shape)
	assert.Equal(t, 2, frame.NonZero())
	assert.Equal(t, Ink, frame.Uint8s[2*8+2])
	assert.Equal(t, Ink, frame.Uint8s[5*8+7])

	r.Reset()
	assert.Equal(t, 2, r.Frame(w).NonZero())
}

func TestFeatureVectorRenderer(t *testing.T) {
	f, err := geom.NewFrame(48, 64, 1)
	require.NoError(t, err)
	w := newWorld(t, f, r2.Vec{X: 20, Y: 20}, r2.Vec{X: 45, Y: 30}, r2.Vec{X: 5, Y: 6})

	r := NewFeatureVectorRenderer(f)
	frame := r.Frame(w)
	require.Equal(t, []int{12}, frame.Shape)
	assert.Equal(t, []int{12}, r.Shape())
	assert.Equal(t, io.Float32, frame.Type)

	assert.InDeltaSlice(t, []float32{20, 20, 1, -2}, frame.Float32s[0:4], 1e-4)
	assert.InDeltaSlice(t, []float32{45, 30, 2, -2}, frame.Float32s[4:8], 1e-4)
	assert.InDeltaSlice(t, []float32{5, 6, 3, -2}, frame.Float32s[8:12], 1e-4)
}

func TestNew(t *testing.T) {
	f, err := geom.NewFrame(48, 64, 1)
	require.NoError(t, err)

	for _, rep := range []string{
		io.RepresentationRaster, io.RepresentationCentroid,
		io.RepresentationFeatures,
	} {
		r, err := New(f, rep, io.ChannelsFirst)
		require.NoError(t, err)
		assert.NotNil(t, r)
	}

	_, err = New(f, "Voxels", io.ChannelsFirst)
	assert.Error(t, err)
}

func BenchmarkPlotCircle5(b *testing.B) {
	c := NewCanvas(48, 64)
	for i := 0; i < b.N; i++ {
		PlotCircle(c, 5, 32, 24)
	}
}

func BenchmarkPlotCircle50(b *testing.B) {
	c := NewCanvas(480, 640)
	for i := 0; i < b.N; i++ {
		PlotCircle(c, 50, 320, 240)
	}
}
