package render

// Ink is the value written to lit pixels.
const Ink uint8 = 255

// Canvas is a single-channel, row-major 8-bit image. Pix may alias the
// storage of a Frame.
type Canvas struct {
	Width, Height int
	Pix           []uint8
}

// NewCanvas allocates a blank canvas.
func NewCanvas(height, width int) *Canvas {
	return &Canvas{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// At returns the value of pixel (x, y).
func (c *Canvas) At(x, y int) uint8 { return c.Pix[y*c.Width+x] }

// Set sets pixel (x, y), clamping it onto the canvas.
func (c *Canvas) Set(x, y int, v uint8) {
	x, y = clamp(x, c.Width), clamp(y, c.Height)
	c.Pix[y*c.Width+x] = v
}

// Clear zeroes the canvas.
func (c *Canvas) Clear() { clear(c.Pix) }

// hLine fills row y from x0 to x1, inclusive. The row and both ends are
// clamped onto the canvas.
func (c *Canvas) hLine(y, x0, x1 int, v uint8) {
	y = clamp(y, c.Height)
	x0, x1 = clamp(x0, c.Width), clamp(x1, c.Width)
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	row := c.Pix[y*c.Width : (y+1)*c.Width]
	for x := x0; x <= x1; x++ {
		row[x] = v
	}
}

// PlotCircle draws a filled disk of the given radius centered on (x0, y0)
// using the midpoint circle algorithm. Each step of the algorithm yields an
// offset pair (x, y), which is expanded by symmetry into four horizontal
// spans. Rows and columns that fall off the canvas are clamped to the
// nearest edge.
func PlotCircle(c *Canvas, radius, x0, y0 int) {
	if radius < 0 || c.Width <= 0 || c.Height <= 0 {
		return
	}

	x, y := radius, 0
	d := 1 - radius
	for x >= y {
		c.hLine(y0+y, x0-x, x0+x, Ink)
		c.hLine(y0-y, x0-x, x0+x, Ink)
		c.hLine(y0+x, x0-y, x0+y, Ink)
		c.hLine(y0-x, x0-y, x0+y, Ink)

		y++
		if d < 0 {
			d += 2*y + 1
		} else {
			x--
			d += 2*(y-x) + 1
		}
	}
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	} else if i >= n {
		return n - 1
	}
	return i
}
