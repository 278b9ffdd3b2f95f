package physics

import (
	"fmt"

	"github.com/ByteArena/box2d"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	staticBody  = 0
	dynamicBody = 2

	maxPolygonVertices = 8
)

// Box2DWorld is a World backed by a box2d world with zero gravity.
type Box2DWorld struct {
	world  box2d.B2World
	bodies []*entry
	nextID int
}

type entry struct {
	id     int
	tag    Tag
	shapes []Shape
	body   *box2d.B2Body
}

var _ World = &Box2DWorld{}

// NewBox2DWorld returns an empty world.
func NewBox2DWorld() *Box2DWorld {
	return &Box2DWorld{world: box2d.MakeB2World(box2d.B2Vec2{X: 0, Y: 0})}
}

func (w *Box2DWorld) CreateStaticBody(def BodyDef) (int, error) {
	return w.createBody(def, staticBody)
}

func (w *Box2DWorld) CreateDynamicBody(def BodyDef) (int, error) {
	return w.createBody(def, dynamicBody)
}

func (w *Box2DWorld) createBody(def BodyDef, bodyType uint8) (int, error) {
	if err := checkDef(&def); err != nil {
		return -1, err
	}

	e := &entry{id: w.nextID, tag: def.Tag}
	e.shapes = append([]Shape{}, def.Shapes...)

	bd := box2d.NewB2BodyDef()
	bd.Type = bodyType
	bd.Position = vec(def.Position)
	bd.LinearVelocity = vec(def.Velocity)
	bd.FixedRotation = true
	bd.Active = !def.Inactive
	bd.UserData = e

	e.body = w.world.CreateBody(bd)
	for _, s := range def.Shapes {
		fd := box2d.MakeB2FixtureDef()
		fd.Shape = b2Shape(s)
		fd.Density = def.Material.Density
		fd.Friction = def.Material.Friction
		fd.Restitution = def.Material.Restitution
		e.body.CreateFixtureFromDef(&fd)
	}
	if bodyType == dynamicBody {
		// Adding fixtures can reset the mass data, so set the velocity last.
		e.body.SetLinearVelocity(vec(def.Velocity))
	}

	w.bodies = append(w.bodies, e)
	w.nextID++
	return e.id, nil
}

func b2Shape(s Shape) box2d.B2ShapeInterface {
	switch s := s.(type) {
	case Circle:
		c := box2d.NewB2CircleShape()
		c.M_radius = s.Radius
		c.M_p = vec(s.Center)
		return c
	case Edge:
		e := box2d.NewB2EdgeShape()
		e.Set(vec(s.P1), vec(s.P2))
		return e
	case Polygon:
		p := box2d.NewB2PolygonShape()
		vs := make([]box2d.B2Vec2, len(s.Vertices))
		for i := range vs {
			vs[i] = vec(s.Vertices[i])
		}
		p.Set(vs, len(vs))
		return p
	}
	panic(fmt.Sprintf("unknown shape type %T", s))
}

func (w *Box2DWorld) Step(dt float64, velocityIters, positionIters int) {
	w.world.Step(dt, velocityIters, positionIters)
}

func (w *Box2DWorld) Bodies() []Body {
	out := make([]Body, len(w.bodies))
	for i, e := range w.bodies {
		tag, ok := tagOf(e.body)
		if !ok {
			panic(fmt.Sprintf("body %d has no tag attached", e.id))
		}
		out[i] = Body{
			ID:       e.id,
			Tag:      tag,
			Position: fromVec(e.body.GetPosition()),
			Velocity: fromVec(e.body.GetLinearVelocity()),
			Shapes:   e.shapes,
			Active:   e.body.IsActive(),
		}
	}
	return out
}

func (w *Box2DWorld) SetActive(id int, active bool) error {
	for _, e := range w.bodies {
		if e.id == id {
			e.body.SetActive(active)
			return nil
		}
	}
	return fmt.Errorf("no body with ID %d", id)
}

func (w *Box2DWorld) DestroyAll() {
	for b := w.world.GetBodyList(); b != nil; {
		next := b.GetNext()
		w.world.DestroyBody(b)
		b = next
	}
	w.bodies = w.bodies[:0]
	w.nextID = 0
}

func (w *Box2DWorld) BodyCount() int { return w.world.GetBodyCount() }

// tagOf returns the tag attached to a raw box2d body created by this package.
func tagOf(b *box2d.B2Body) (Tag, bool) {
	e, ok := b.GetUserData().(*entry)
	if !ok {
		return Tag{}, false
	}
	return e.tag, true
}

func vec(v r2.Vec) box2d.B2Vec2      { return box2d.B2Vec2{X: v.X, Y: v.Y} }
func fromVec(v box2d.B2Vec2) r2.Vec { return r2.Vec{X: v.X, Y: v.Y} }
