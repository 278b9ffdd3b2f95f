/*
Package plot draws previews of generated sequences with matplotlib, by way of
pyplot. It reads the trajectories.txt table written alongside each split.
*/
package plot

import (
	"fmt"
	"path/filepath"
	"sort"

	plt "github.com/phil-mansfield/pyplot"

	"github.com/phil-mansfield/bouncing/io"
)

var colors = []string{"r", "b", "g", "m", "c", "y", "k", "orange"}

// Track is the path of a single ball through a sequence.
type Track struct {
	Ball   int
	Xs, Ys []float64
}

// Tracks groups the points of one sequence by ball, sorted by ball index.
// Points within a track are in frame order.
func Tracks(pts []io.TrajectoryPoint, sequence int) []Track {
	var seq []io.TrajectoryPoint
	for _, p := range pts {
		if p.Sequence == sequence {
			seq = append(seq, p)
		}
	}
	sort.SliceStable(seq, func(i, j int) bool { return seq[i].Frame < seq[j].Frame })

	byBall := map[int]*Track{}
	for _, p := range seq {
		t, ok := byBall[p.Ball]
		if !ok {
			t = &Track{Ball: p.Ball}
			byBall[p.Ball] = t
		}
		t.Xs = append(t.Xs, p.X)
		t.Ys = append(t.Ys, p.Y)
	}

	tracks := make([]Track, 0, len(byBall))
	for _, t := range byBall {
		tracks = append(tracks, *t)
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Ball < tracks[j].Ball })
	return tracks
}

// Trajectories plots the ball tracks of one sequence of the split in dir and
// saves the figure to fname. Screen coordinates are used, so y points down.
func Trajectories(dir string, sequence int, fname string) error {
	pts, err := io.ReadTrajectories(filepath.Join(dir, io.TrajectoryFile))
	if err != nil {
		return err
	}
	m := io.Manifest{}
	if err := io.ReadYAML(filepath.Join(dir, io.ManifestFile), &m); err != nil {
		return err
	}

	tracks := Tracks(pts, sequence)
	if len(tracks) == 0 {
		return fmt.Errorf("no trajectories for sequence %d in %s", sequence, dir)
	}

	height, width := frameSize(&m)

	plt.Reset()
	plt.Figure(plt.FigSize(8, 6))
	for i, t := range tracks {
		c := colors[i%len(colors)]
		plt.Plot(t.Xs, t.Ys, plt.LW(2), plt.C(c))
		plt.Plot(t.Xs[:1], t.Ys[:1], "o", plt.C(c))
	}
	if width > 0 && height > 0 {
		plt.XLim(0, float64(width))
		plt.YLim(float64(height), 0)
	}
	plt.Title(fmt.Sprintf("%s sequence %d", m.Split, sequence))
	plt.XLabel("$x$ [px]", plt.FontSize(16))
	plt.YLabel("$y$ [px]", plt.FontSize(16))
	plt.SaveFig(fname)
	plt.Execute()

	return nil
}

// frameSize returns the arena size recorded in a raster manifest, or zeros if
// it can't be recovered.
func frameSize(m *io.Manifest) (height, width int) {
	if m.Representation != io.RepresentationRaster || len(m.FrameShape) != 3 {
		return 0, 0
	}
	if m.Channels == io.ChannelsLast {
		return m.FrameShape[0], m.FrameShape[1]
	}
	return m.FrameShape[1], m.FrameShape[2]
}
