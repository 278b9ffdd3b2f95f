/*
Package bouncing generates labeled video datasets of balls bouncing around a
rectangular arena.

A dataset is made of three splits (train, validation and test). Each split is
generated by a Manager, which partitions the split's sequences into
contiguous spans, generates every span on its own goroutine and merges the
ball trajectories recorded by each worker once they have all finished.
*/
package bouncing

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/phil-mansfield/bouncing/io"
	"github.com/phil-mansfield/bouncing/render"
)

// Manager generates dataset splits in parallel.
type Manager struct {
	workers int
	log     *zap.SugaredLogger
	runID   string

	// workspaces of the most recent call to Generate.
	workspaces []*workspace
}

// Option configures a Manager.
type Option func(*Manager)

// Workers sets the number of worker goroutines. Zero uses one per core.
func Workers(n int) Option { return func(man *Manager) { man.workers = n } }

// Logger sets the logger that progress is reported to.
func Logger(log *zap.SugaredLogger) Option {
	return func(man *Manager) { man.log = log }
}

// RunID sets the ID recorded in the manifests that a Manager writes.
func RunID(id string) Option { return func(man *Manager) { man.runID = id } }

// NewManager returns a Manager. By default it uses one worker per core, logs
// nothing and generates a random run ID.
func NewManager(opts ...Option) *Manager {
	man := &Manager{log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(man)
	}
	if man.workers <= 0 {
		man.workers = runtime.NumCPU()
	}
	if man.runID == "" {
		man.runID = uuid.NewString()
	}
	return man
}

// Generate writes the sequences of a single split to
// <Output>/<split name>/, along with the split's metadata, trajectory table
// and manifest. If the split directory already holds exactly the expected
// number of sequences nothing is done. The number of sequences generated is
// returned.
func (man *Manager) Generate(split SplitConfig) (int, error) {
	if err := checkSplit(split.Name); err != nil {
		return 0, err
	}
	con := &split.Config
	if err := con.Check(); err != nil {
		return 0, err
	}

	dir := filepath.Join(con.Output, split.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, err
	}

	n, err := CountSequences(dir)
	if err != nil {
		return 0, err
	}
	if con.Sequences == 0 {
		man.log.Infow("Split is empty, nothing to generate",
			"split", split.Name, "dir", dir)
		return 0, nil
	} else if n == con.Sequences {
		man.log.Infow("Split already generated, skipping",
			"split", split.Name, "dir", dir, "sequences", n)
		return 0, nil
	}

	// A partial split is regenerated from scratch.
	if err := removeSequences(dir); err != nil {
		return 0, err
	}

	spans := Partition(con.Sequences, man.workers)
	man.workspaces = make([]*workspace, 0, len(spans))
	for _, span := range spans {
		if span.Len() == 0 {
			continue
		}
		ws, err := newWorkspace(span, &split, dir)
		if err != nil {
			return 0, err
		}
		man.workspaces = append(man.workspaces, ws)
	}

	man.log.Infow("Generating split", "split", split.Name, "dir", dir,
		"sequences", con.Sequences, "workers", len(man.workspaces))

	var written atomic.Int64
	total := con.Sequences
	logEvery := max(total/20, 1)
	done := func() {
		if i := int(written.Add(1)); i%logEvery == 0 || i == total {
			man.log.Infof("Wrote %d/%d %s sequences", i, total, split.Name)
		}
	}

	g := errgroup.Group{}
	for _, ws := range man.workspaces {
		g.Go(func() error {
			man.log.Debugw("Worker started", "split", split.Name,
				"worker", ws.span.Worker, "span", ws.span.String())
			if err := ws.run(done); err != nil {
				return fmt.Errorf("%s worker %d: %w", split.Name, ws.span.Worker, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(written.Load()), err
	}

	if err := man.writeSplitFiles(&split, dir); err != nil {
		return total, err
	}
	return total, nil
}

// writeSplitFiles merges worker metadata, in worker order, and writes it
// along with the split manifest.
func (man *Manager) writeSplitFiles(split *SplitConfig, dir string) error {
	con := &split.Config

	if con.SaveMetadata {
		var trajs []io.Trajectory
		for _, ws := range man.workspaces {
			trajs = append(trajs, ws.trajs...)
		}

		meta, err := io.MetadataArray(trajs, con.SequenceLen, con.MaxBalls())
		if err != nil {
			return err
		}
		if err := io.WriteNpyFile(filepath.Join(dir, io.MetadataFile), meta); err != nil {
			return err
		}
		err = io.WriteTrajectories(filepath.Join(dir, io.TrajectoryFile), trajs, 0)
		if err != nil {
			return err
		}
	}

	m, err := man.manifest(split)
	if err != nil {
		return err
	}
	return io.WriteYAML(filepath.Join(dir, io.ManifestFile), m)
}

func (man *Manager) manifest(split *SplitConfig) (*io.Manifest, error) {
	con := &split.Config
	m := &io.Manifest{
		RunID:          man.runID,
		Split:          split.Name,
		Sequences:      con.Sequences,
		SequenceLen:    con.SequenceLen,
		DType:          io.Uint8.String(),
		Representation: con.Representation,
		Channels:       con.Channels,
		MaxBalls:       con.MaxBalls(),
		Workers:        len(man.workspaces),
		Seed:           con.Seed,
		Metadata:       con.SaveMetadata,
	}

	switch con.Representation {
	case io.RepresentationFeatures:
		// Feature vectors vary in length with the number of balls.
		m.DType = io.Float32.String()
	default:
		f, err := con.Frame()
		if err != nil {
			return nil, err
		}
		r, err := render.New(f, con.Representation, con.Channels)
		if err != nil {
			return nil, err
		}
		m.FrameShape = r.Shape()
	}
	return m, nil
}

// CountSequences returns the number of sequence files in a split directory.
func CountSequences(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "bouncing_balls_*.npy"))
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

func removeSequences(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "bouncing_balls_*.npy"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return err
		}
	}
	return nil
}

// Generated returns true if every split directory under con.Output holds
// exactly the expected number of sequences.
func Generated(con io.Config) bool {
	for _, split := range SplitConfigs(con) {
		dir := filepath.Join(con.Output, split.Name)
		if _, err := os.Stat(dir); err != nil {
			return false
		}
		n, err := CountSequences(dir)
		if err != nil || n != split.Config.Sequences {
			return false
		}
	}
	return true
}

// GenerateData generates the train, validation and test splits of the
// dataset described by con and writes <Output>/dataset.yaml. Nothing is done
// if the dataset has already been generated. The number of sequences
// generated across all splits is returned.
func GenerateData(con io.Config, opts ...Option) (int, error) {
	if err := con.Check(); err != nil {
		return 0, err
	}

	opts = append([]Option{Workers(con.Workers)}, opts...)
	man := NewManager(opts...)

	if Generated(con) {
		man.log.Infow("Dataset already generated, skipping", "dir", con.Output)
		return 0, nil
	}

	total := 0
	counts := map[string]int{}
	for _, split := range SplitConfigs(con) {
		n, err := man.Generate(split)
		total += n
		if err != nil {
			return total, err
		}
		counts[split.Name] = split.Config.Sequences
	}

	dm := &io.DatasetManifest{RunID: man.runID, Config: con, Splits: counts}
	if err := io.WriteYAML(filepath.Join(con.Output, io.DatasetFile), dm); err != nil {
		return total, err
	}
	return total, nil
}
