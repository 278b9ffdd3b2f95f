package io

import (
	"bufio"
	"fmt"
	"os"

	"github.com/phil-mansfield/table"
	"gopkg.in/yaml.v3"

	"github.com/phil-mansfield/bouncing/geom"
)

const (
	// MetadataFile holds the ball centers of every frame in a split.
	MetadataFile = "metadata.npy"
	// TrajectoryFile holds the same centers as a whitespace separated table.
	TrajectoryFile = "trajectories.txt"
	ManifestFile   = "manifest.yaml"
	DatasetFile    = "dataset.yaml"
)

// Trajectory is the screen-frame center of every ball in every frame of one
// sequence, indexed as [frame][ball].
type Trajectory [][]geom.Pixel

// MetadataArray packs the trajectories of a split into an int32 array with
// shape (sequences, seqLen, maxBalls, 2). Slots for balls a sequence doesn't
// have, or frames it didn't record, hold -1.
func MetadataArray(trajs []Trajectory, seqLen, maxBalls int) (*Array, error) {
	a := NewArray(Int32, len(trajs), seqLen, maxBalls, 2)
	for i := range a.Int32s {
		a.Int32s[i] = -1
	}

	for s, traj := range trajs {
		if len(traj) > seqLen {
			return nil, fmt.Errorf(
				"sequence %d has %d frames, expected at most %d",
				s, len(traj), seqLen,
			)
		}
		for f, balls := range traj {
			if len(balls) > maxBalls {
				return nil, fmt.Errorf(
					"frame %d of sequence %d has %d balls, expected at most %d",
					f, s, len(balls), maxBalls,
				)
			}
			for b, p := range balls {
				i := ((s*seqLen+f)*maxBalls + b) * 2
				a.Int32s[i], a.Int32s[i+1] = int32(p.X), int32(p.Y)
			}
		}
	}

	return a, nil
}

// TrajectoryPoint is a single row of a trajectory table.
type TrajectoryPoint struct {
	Sequence, Frame, Ball int
	X, Y                  float64
}

// WriteTrajectories writes one "sequence frame ball x y" row per recorded
// ball center. Sequence indices are offset by first.
func WriteTrajectories(fname string, trajs []Trajectory, first int) error {
	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	wr := bufio.NewWriter(f)

	for s, traj := range trajs {
		for frame, balls := range traj {
			for b, p := range balls {
				fmt.Fprintf(wr, "%8d %5d %3d %5d %5d\n", s+first, frame, b, p.X, p.Y)
			}
		}
	}

	if err := wr.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadTrajectories reads a table written by WriteTrajectories.
func ReadTrajectories(fname string) ([]TrajectoryPoint, error) {
	info, err := os.Stat(fname)
	if err != nil {
		return nil, err
	} else if info.Size() == 0 {
		return nil, nil
	}

	cols, err := table.ReadTable(fname, []int{0, 1, 2, 3, 4}, nil)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", fname, err)
	}

	pts := make([]TrajectoryPoint, len(cols[0]))
	for i := range pts {
		pts[i] = TrajectoryPoint{
			Sequence: int(cols[0][i]),
			Frame:    int(cols[1][i]),
			Ball:     int(cols[2][i]),
			X:        cols[3][i],
			Y:        cols[4][i],
		}
	}
	return pts, nil
}

// Manifest describes the contents of a single split directory.
type Manifest struct {
	RunID          string `yaml:"run_id"`
	Split          string `yaml:"split"`
	Sequences      int    `yaml:"sequences"`
	SequenceLen    int    `yaml:"sequence_len"`
	FrameShape     []int  `yaml:"frame_shape"`
	DType          string `yaml:"dtype"`
	Representation string `yaml:"representation"`
	Channels       string `yaml:"channels"`
	MaxBalls       int    `yaml:"max_balls"`
	Workers        int    `yaml:"workers"`
	Seed           int64  `yaml:"seed"`
	Metadata       bool   `yaml:"metadata"`
}

// DatasetManifest describes a whole dataset directory.
type DatasetManifest struct {
	RunID  string         `yaml:"run_id"`
	Config Config         `yaml:"config"`
	Splits map[string]int `yaml:"splits"`
}

// WriteYAML encodes v to the named file.
func WriteYAML(fname string, v any) error {
	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", fname, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadYAML decodes the named file into v.
func ReadYAML(fname string, v any) error {
	f, err := os.Open(fname)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", fname, err)
	}
	return nil
}
