/*
Package physics describes the rigid-body world that bouncing ball arenas are
simulated in.

Bodies are tagged with a Kind when they are created so that renderers can pick
out the bodies they draw without relying on creation order. Shapes are a closed
set of variants: circles, line segments and convex polygons. Positions and
velocities are always in the world frame.

The World interface is implemented by Box2DWorld, which hands collision
response off to the box2d solver.
*/
package physics

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

////////////////
// Body tags. //
////////////////

// Kind is the role a body plays in an arena.
type Kind int

const (
	// Boundary bodies are the walls of the arena.
	Boundary Kind = iota
	// Obstacle bodies are static shapes, like occlusion rectangles and lines.
	Obstacle
	// Ball bodies are the moving circles which get rendered.
	Ball
)

var kindNames = [...]string{"Boundary", "Obstacle", "Ball"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Renderable returns true if bodies of this kind show up in rendered frames.
func (k Kind) Renderable() bool { return k == Ball }

// Tag identifies a body.
type Tag struct {
	Name string
	Kind Kind
}

////////////
// Shapes //
////////////

// Shape is one of Circle, Edge or Polygon. Shape coordinates are relative to
// the position of the body which owns them.
type Shape interface {
	isShape()
}

// Circle is a disk with a local center.
type Circle struct {
	Center r2.Vec
	Radius float64
}

// Edge is a two-sided line segment.
type Edge struct {
	P1, P2 r2.Vec
}

// Polygon is a convex polygon with counter-clockwise vertices.
type Polygon struct {
	Vertices []r2.Vec
}

func (Circle) isShape()  {}
func (Edge) isShape()    {}
func (Polygon) isShape() {}

// Box returns a Polygon for an axis-aligned box centered on the body with the
// given half-widths.
func Box(hx, hy float64) Polygon {
	return Polygon{Vertices: []r2.Vec{
		{X: -hx, Y: -hy}, {X: +hx, Y: -hy},
		{X: +hx, Y: +hy}, {X: -hx, Y: +hy},
	}}
}

////////////
// Bodies //
////////////

// Material describes how a body's fixtures respond to contact.
type Material struct {
	Density, Friction, Restitution float64
}

// Elastic is a frictionless material with perfectly elastic collisions.
var Elastic = Material{Density: 1, Friction: 0, Restitution: 1}

// BodyDef is everything needed to create a body.
type BodyDef struct {
	Tag      Tag
	Position r2.Vec
	Velocity r2.Vec
	Shapes   []Shape
	Material Material
	// Inactive bodies take no part in collisions.
	Inactive bool
}

// Body is a snapshot of a body's state.
type Body struct {
	ID       int
	Tag      Tag
	Position r2.Vec
	Velocity r2.Vec
	Shapes   []Shape
	Active   bool
}

// Circles returns the circle shapes of a body.
func (b *Body) Circles() []Circle {
	var out []Circle
	for _, s := range b.Shapes {
		if c, ok := s.(Circle); ok {
			out = append(out, c)
		}
	}
	return out
}

//////////////////////
// World interface. //
//////////////////////

// World is a rigid-body world with no gravity.
type World interface {
	// CreateStaticBody adds an immovable body and returns its ID.
	CreateStaticBody(def BodyDef) (int, error)
	// CreateDynamicBody adds a moving body and returns its ID.
	CreateDynamicBody(def BodyDef) (int, error)
	// Step advances the world by dt seconds.
	Step(dt float64, velocityIters, positionIters int)
	// Bodies returns snapshots of every body in creation order.
	Bodies() []Body
	// SetActive switches a body in or out of collision processing.
	SetActive(id int, active bool) error
	// DestroyAll removes every body.
	DestroyAll()
	BodyCount() int
}

// Renderable returns the bodies of w which should be drawn, in creation order.
func Renderable(w World) []Body {
	bodies := w.Bodies()
	out := bodies[:0]
	for _, b := range bodies {
		if b.Tag.Kind.Renderable() {
			out = append(out, b)
		}
	}
	return out
}

func checkDef(def *BodyDef) error {
	if len(def.Shapes) == 0 {
		return fmt.Errorf("body '%s' has no shapes", def.Tag.Name)
	}
	for i, s := range def.Shapes {
		switch s := s.(type) {
		case Circle:
			if s.Radius <= 0 {
				return fmt.Errorf(
					"circle %d of body '%s' has non-positive radius %g",
					i, def.Tag.Name, s.Radius,
				)
			}
		case Edge:
			if s.P1 == s.P2 {
				return fmt.Errorf(
					"edge %d of body '%s' has zero length", i, def.Tag.Name,
				)
			}
		case Polygon:
			if len(s.Vertices) < 3 || len(s.Vertices) > maxPolygonVertices {
				return fmt.Errorf(
					"polygon %d of body '%s' has %d vertices, must have 3-%d",
					i, def.Tag.Name, len(s.Vertices), maxPolygonVertices,
				)
			}
		default:
			return fmt.Errorf("unknown shape type %T", s)
		}
	}
	return nil
}
