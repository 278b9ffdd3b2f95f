package bouncing

import (
	"fmt"
	"math/rand/v2"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/phil-mansfield/bouncing/geom"
	"github.com/phil-mansfield/bouncing/io"
	"github.com/phil-mansfield/bouncing/physics"
	"github.com/phil-mansfield/bouncing/render"
	"github.com/phil-mansfield/bouncing/sim"
)

// SequenceName returns the file name of the i-th sequence of a split.
func SequenceName(i int) string {
	return fmt.Sprintf("bouncing_balls_%d.npy", i)
}

// workspace holds everything owned by a single worker. Nothing in a workspace
// is shared with any other worker.
type workspace struct {
	span Span
	con  *io.Config
	dir  string

	frame geom.Frame
	gen   *rand.Rand
	sim   *sim.Simulator

	trajs []io.Trajectory
}

func newWorkspace(span Span, split *SplitConfig, dir string) (*workspace, error) {
	con := &split.Config
	f, err := con.Frame()
	if err != nil {
		return nil, err
	}
	r, err := render.New(f, con.Representation, con.Channels)
	if err != nil {
		return nil, err
	}

	seed := WorkerSeed(con.Seed, split.Name, span.Worker)
	gen := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	s, err := sim.New(
		physics.NewBox2DWorld(), f, r,
		sim.FPS(con.FPS), sim.SaveMetadata(con.SaveMetadata), sim.Rand(gen),
	)
	if err != nil {
		return nil, err
	}

	return &workspace{
		span: span, con: con, dir: dir,
		frame: f, gen: gen, sim: s,
	}, nil
}

// run generates every sequence in the workspace's span, calling done after
// each one is written.
func (w *workspace) run(done func()) (err error) {
	defer func() {
		if cerr := w.sim.Close(); err == nil {
			err = cerr
		}
	}()

	for i := w.span.Start; i < w.span.End; i++ {
		if err := w.sequence(i); err != nil {
			return fmt.Errorf("sequence %d: %w", i, err)
		}
		done()
	}
	return nil
}

func (w *workspace) sequence(i int) error {
	if err := w.sim.SaveTo(filepath.Join(w.dir, SequenceName(i))); err != nil {
		return err
	}
	if err := w.setupEnvironment(); err != nil {
		return err
	}

	for k := 0; k < w.con.SequenceLen; k++ {
		if _, err := w.sim.Step(); err != nil {
			return err
		}
	}

	if w.con.SaveMetadata {
		w.trajs = append(w.trajs, w.sim.TakeMetadata())
	}
	return w.sim.Reset()
}

// setupEnvironment adds the balls, and the occlusion if there is one, for a
// new sequence. The number of balls is drawn from con.Balls.
func (w *workspace) setupEnvironment() error {
	con := w.con
	balls := con.Balls[w.gen.IntN(len(con.Balls))]

	if con.Occlusion {
		rect := con.OcclusionRect()
		if err := w.sim.AddRectangularOcclusion(rect); err != nil {
			return err
		}
		for j := 0; j < balls; j++ {
			speed := w.gen.NormFloat64()*con.MeanVel/10 + con.MeanVel
			pos := geom.RandomPosOutsideRect(w.gen, w.frame.Height, w.frame.Width, rect)
			dir := geom.RandomTrajectoryThroughRect(w.gen, pos, rect)
			if err := w.sim.AddCircle(pos, r2.Scale(speed, dir), con.BallRadius); err != nil {
				return err
			}
		}
		return nil
	}

	for j := 0; j < balls; j++ {
		var err error
		switch con.DOF {
		case 1:
			pos := r2.Vec{
				X: w.gen.Float64() * float64(w.frame.Width),
				Y: w.gen.Float64() * float64(w.frame.Height),
			}
			vel := r2.Vec{X: 2*con.MeanVel*w.gen.Float64() - con.MeanVel}
			err = w.sim.AddCircle(pos, vel, con.BallRadius)
		default:
			err = w.sim.AddRandCircle(con.MeanVel, con.BallRadius)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
