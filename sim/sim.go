/*
Package sim runs bouncing ball arenas: it populates a physics world with balls,
obstacles and a bounding box, steps it at a fixed frame rate and sends every
frame to a renderer and, optionally, a SequenceWriter.

All positions and velocities given to a Simulator are in the screen frame
(pixels and pixels per second). They are converted to the world frame before
they reach the physics engine.
*/
package sim

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/phil-mansfield/bouncing/geom"
	"github.com/phil-mansfield/bouncing/io"
	"github.com/phil-mansfield/bouncing/physics"
	"github.com/phil-mansfield/bouncing/render"
)

const (
	DefaultFPS = 60

	velocityIters = 10
	positionIters = 10
)

// ErrInvalidState is returned (wrapped) when an operation isn't allowed in
// the simulator's current State.
var ErrInvalidState = errors.New("invalid simulator state")

// State is the point a simulator has reached in its lifecycle.
type State int

const (
	// Fresh simulators hold nothing but the bounding box.
	Fresh State = iota
	// Populated simulators have had bodies added but haven't been stepped.
	Populated
	// Stepping simulators have been stepped at least once since the last
	// Reset. No bodies may be added until the next Reset.
	Stepping
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "Fresh"
	case Populated:
		return "Populated"
	case Stepping:
		return "Stepping"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Simulator owns a physics world, a renderer and a writer. It isn't safe for
// concurrent use; parallel generation uses one Simulator per worker.
type Simulator struct {
	world    physics.World
	frame    geom.Frame
	renderer render.Renderer
	writer   *io.SequenceWriter
	gen      *rand.Rand

	fps          int
	saveMetadata bool
	metadata     io.Trajectory

	state    State
	boundary int
}

// Option configures a Simulator.
type Option func(*Simulator)

// FPS sets the number of steps per simulated second.
func FPS(fps int) Option { return func(s *Simulator) { s.fps = fps } }

// SaveMetadata turns the collection of per-step ball centers on or off. It
// is on by default.
func SaveMetadata(save bool) Option {
	return func(s *Simulator) { s.saveMetadata = save }
}

// Rand sets the generator used by AddRandCircle.
func Rand(gen *rand.Rand) Option { return func(s *Simulator) { s.gen = gen } }

// New creates a simulator for an empty world and adds the bounding box.
func New(
	w physics.World, f geom.Frame, r render.Renderer, opts ...Option,
) (*Simulator, error) {
	s := &Simulator{
		world:        w,
		frame:        f,
		renderer:     r,
		writer:       io.NewSequenceWriter(),
		fps:          DefaultFPS,
		saveMetadata: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.fps <= 0 {
		return nil, fmt.Errorf("FPS must be positive, got %d", s.fps)
	} else if w.BodyCount() != 0 {
		return nil, fmt.Errorf("simulator given a world with %d bodies", w.BodyCount())
	}
	if s.gen == nil {
		s.gen = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	if err := s.createBoundingBox(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Simulator) createBoundingBox() error {
	hw := s.frame.PixelsToUnits(float64(s.frame.Width)) / 2
	hh := s.frame.PixelsToUnits(float64(s.frame.Height)) / 2

	bl, br := r2.Vec{X: -hw, Y: -hh}, r2.Vec{X: +hw, Y: -hh}
	tr, tl := r2.Vec{X: +hw, Y: +hh}, r2.Vec{X: -hw, Y: +hh}

	id, err := s.world.CreateStaticBody(physics.BodyDef{
		Tag: physics.Tag{Name: "world_bounding_box", Kind: physics.Boundary},
		Shapes: []physics.Shape{
			physics.Edge{P1: bl, P2: br}, physics.Edge{P1: br, P2: tr},
			physics.Edge{P1: tr, P2: tl}, physics.Edge{P1: tl, P2: bl},
		},
		Material: physics.Elastic,
	})
	if err != nil {
		return fmt.Errorf("creating bounding box: %w", err)
	}
	s.boundary = id
	return nil
}

func (s *Simulator) State() State { return s.state }

// World returns the simulator's physics world.
func (s *Simulator) World() physics.World { return s.world }

// Timestep returns the simulated time covered by a single step.
func (s *Simulator) Timestep() time.Duration {
	return time.Second / time.Duration(s.fps)
}

func (s *Simulator) checkAddable(what string) error {
	if s.state == Stepping {
		return fmt.Errorf("%w: cannot add %s while %s", ErrInvalidState, what, s.state)
	}
	return nil
}

// EnableBoundingBox turns collisions with the arena walls on or off.
func (s *Simulator) EnableBoundingBox(enable bool) error {
	return s.world.SetActive(s.boundary, enable)
}

// AddCircle adds a ball with the given center, velocity and radius.
func (s *Simulator) AddCircle(pos, vel r2.Vec, radius float64) error {
	if err := s.checkAddable("circle"); err != nil {
		return err
	}

	_, err := s.world.CreateDynamicBody(physics.BodyDef{
		Tag:      physics.Tag{Name: "circle", Kind: physics.Ball},
		Position: s.frame.ToWorld(pos),
		Velocity: s.frame.VelocityToWorld(vel),
		Shapes: []physics.Shape{
			physics.Circle{Radius: s.frame.PixelsToUnits(radius)},
		},
		Material: physics.Elastic,
	})
	if err != nil {
		return err
	}
	s.state = Populated
	return nil
}

// AddRandCircle adds a ball anywhere in the arena moving in a random direction
// with a speed drawn from Normal(meanVel, meanVel/10).
func (s *Simulator) AddRandCircle(meanVel, radius float64) error {
	pos := r2.Vec{
		X: s.gen.Float64() * float64(s.frame.Width),
		Y: s.gen.Float64() * float64(s.frame.Height),
	}
	return s.AddCircle(pos, RandomVelocity(s.gen, meanVel), radius)
}

// RandomVelocity returns a velocity with a uniformly random direction and a
// speed drawn from Normal(meanVel, meanVel/10).
func RandomVelocity(gen *rand.Rand, meanVel float64) r2.Vec {
	theta := 2 * math.Pi * gen.Float64()
	speed := gen.NormFloat64()*meanVel/10 + meanVel
	return r2.Vec{X: math.Cos(theta) * speed, Y: math.Sin(theta) * speed}
}

// AddRectangularOcclusion adds a static box which balls don't collide with.
// It isn't drawn by any renderer.
func (s *Simulator) AddRectangularOcclusion(rect geom.Rect) error {
	if err := s.checkAddable("occlusion"); err != nil {
		return err
	} else if rect.W <= 0 || rect.H <= 0 {
		return fmt.Errorf("occlusion %v has non-positive size", rect)
	}

	hw := s.frame.PixelsToUnits(rect.W) / 2
	hh := s.frame.PixelsToUnits(rect.H) / 2
	_, err := s.world.CreateStaticBody(physics.BodyDef{
		Tag:      physics.Tag{Name: "rectangular_occlusion", Kind: physics.Obstacle},
		Position: s.frame.ToWorld(rect.Center()),
		Shapes:   []physics.Shape{physics.Box(hw, hh)},
		Material: physics.Material{},
		Inactive: true,
	})
	if err != nil {
		return err
	}
	s.state = Populated
	return nil
}

// AddLine adds a static line segment between two points. Lines take no part
// in collisions and aren't drawn.
func (s *Simulator) AddLine(p1, p2 r2.Vec) error {
	if err := s.checkAddable("line"); err != nil {
		return err
	}

	w1, w2 := s.frame.ToWorld(p1), s.frame.ToWorld(p2)
	mid := r2.Scale(0.5, r2.Add(w1, w2))
	_, err := s.world.CreateStaticBody(physics.BodyDef{
		Tag:      physics.Tag{Name: "line", Kind: physics.Obstacle},
		Position: mid,
		Shapes: []physics.Shape{
			physics.Edge{P1: r2.Sub(w1, mid), P2: r2.Sub(w2, mid)},
		},
		Inactive: true,
	})
	if err != nil {
		return err
	}
	s.state = Populated
	return nil
}

// SaveTo sends every frame rendered from now on to a new sequence file at
// path. Any sequence which was already open is written out first.
func (s *Simulator) SaveTo(path string) error {
	if s.state == Stepping {
		return fmt.Errorf("%w: cannot open %s while %s", ErrInvalidState, path, s.state)
	}
	return s.writer.Open(path)
}

// Step renders the current state of the world, writes the frame if a sequence
// is open, records ball centers if metadata is enabled and then advances the
// world by one timestep. The length of the timestep is returned.
func (s *Simulator) Step() (time.Duration, error) {
	s.state = Stepping

	frame := s.renderer.Frame(s.world)
	if s.writer.IsOpen() {
		if err := s.writer.Write(frame); err != nil {
			return 0, err
		}
	}
	if s.saveMetadata {
		s.collectMetadata()
	}

	s.world.Step(1/float64(s.fps), velocityIters, positionIters)
	return s.Timestep(), nil
}

// RunSimulation steps the world until d has been simulated and then writes
// out the open sequence, if there is one.
func (s *Simulator) RunSimulation(d time.Duration) error {
	for elapsed := time.Duration(0); elapsed < d; {
		dt, err := s.Step()
		if err != nil {
			return err
		}
		elapsed += dt
	}
	return s.writer.Close()
}

// Reset removes every body, writes out the open sequence, clears the
// renderer and the collected metadata and recreates the bounding box.
func (s *Simulator) Reset() error {
	s.world.DestroyAll()
	s.renderer.Reset()
	s.metadata = nil
	s.state = Fresh

	err := s.writer.Close()
	if bbErr := s.createBoundingBox(); bbErr != nil {
		return bbErr
	}
	return err
}

// Close writes out the open sequence, if there is one. It may be called any
// number of times.
func (s *Simulator) Close() error { return s.writer.Close() }

// Metadata returns the ball centers recorded at each step since the last
// Reset.
func (s *Simulator) Metadata() io.Trajectory { return s.metadata }

// TakeMetadata returns the recorded ball centers and clears them.
func (s *Simulator) TakeMetadata() io.Trajectory {
	m := s.metadata
	s.metadata = nil
	return m
}

func (s *Simulator) collectMetadata() {
	var centers []geom.Pixel
	for _, b := range physics.Renderable(s.world) {
		for _, c := range b.Circles() {
			centers = append(centers, s.frame.ToScreen(r2.Add(b.Position, c.Center)))
		}
	}
	s.metadata = append(s.metadata, centers)
}
