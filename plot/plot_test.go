package plot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/bouncing/io"
)

func TestTracks(t *testing.T) {
	pts := []io.TrajectoryPoint{
		{Sequence: 0, Frame: 0, Ball: 0, X: 1, Y: 1},
		{Sequence: 1, Frame: 1, Ball: 1, X: 8, Y: 9},
		{Sequence: 1, Frame: 0, Ball: 1, X: 6, Y: 7},
		{Sequence: 1, Frame: 0, Ball: 0, X: 2, Y: 3},
		{Sequence: 1, Frame: 1, Ball: 0, X: 4, Y: 5},
	}

	tracks := Tracks(pts, 1)
	require.Len(t, tracks, 2)
	assert.Equal(t, Track{Ball: 0, Xs: []float64{2, 4}, Ys: []float64{3, 5}}, tracks[0])
	assert.Equal(t, Track{Ball: 1, Xs: []float64{6, 8}, Ys: []float64{7, 9}}, tracks[1])

	assert.Empty(t, Tracks(pts, 2))
}

func TestFrameSize(t *testing.T) {
	m := io.Manifest{
		Representation: io.RepresentationRaster,
		Channels:       io.ChannelsFirst,
		FrameShape:     []int{1, 48, 64},
	}
	h, w := frameSize(&m)
	assert.Equal(t, [2]int{48, 64}, [2]int{h, w})

	m.Channels, m.FrameShape = io.ChannelsLast, []int{48, 64, 1}
	h, w = frameSize(&m)
	assert.Equal(t, [2]int{48, 64}, [2]int{h, w})

	m.Representation = io.RepresentationCentroid
	h, w = frameSize(&m)
	assert.Zero(t, h+w)
}
