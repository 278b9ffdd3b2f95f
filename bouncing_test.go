package bouncing

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/phil-mansfield/bouncing/io"
)

func testConfig(dir string) io.Config {
	con := io.DefaultConfig()
	con.Output = dir
	con.Sequences = 4
	con.SequenceLen = 5
	con.Balls = []int{2}
	con.Workers = 2
	con.Seed = 17
	return con
}

func TestPartition(t *testing.T) {
	for sequences := 0; sequences <= 50; sequences++ {
		for workers := 1; workers <= 9; workers++ {
			spans := Partition(sequences, workers)
			require.Len(t, spans, workers)

			base, rem := sequences/workers, sequences%workers
			start, big := 0, 0
			for i, s := range spans {
				assert.Equal(t, i, s.Worker)
				assert.Equal(t, start, s.Start, "%d/%d gap or overlap", sequences, workers)
				assert.True(t, s.Len() == base || s.Len() == base+1)
				if s.Len() == base+1 {
					big++
				}
				start = s.End
			}
			assert.Equal(t, sequences, start)
			assert.Equal(t, rem, big)
		}
	}
}

func TestPartitionDegenerate(t *testing.T) {
	assert.Equal(t, []Span{{0, 0, 3}}, Partition(3, 0))
	assert.Equal(t, []Span{{0, 0, 1}, {1, 1, 1}, {2, 1, 1}}, Partition(1, 3))
}

func TestSplitConfigs(t *testing.T) {
	base := testConfig("data")
	base.Sequences = 105
	base.Balls = []int{3, 6}

	splits := SplitConfigs(base)
	require.Len(t, splits, 3)
	assert.Equal(t, Train, splits[0].Name)
	assert.Equal(t, 105, splits[0].Config.Sequences)
	assert.Equal(t, Validation, splits[1].Name)
	assert.Equal(t, 10, splits[1].Config.Sequences)
	assert.Equal(t, Test, splits[2].Name)
	assert.Equal(t, 10, splits[2].Config.Sequences)

	splits[1].Config.Balls[0] = 100
	assert.Equal(t, 105, base.Sequences)
	assert.Equal(t, []int{3, 6}, base.Balls)
}

func TestWorkerSeed(t *testing.T) {
	seen := map[uint64]bool{}
	for _, split := range Splits {
		for w := 0; w < 8; w++ {
			s := WorkerSeed(1, split, w)
			assert.False(t, seen[s], "%s %d", split, w)
			seen[s] = true
			assert.Equal(t, s, WorkerSeed(1, split, w))
		}
	}
	assert.NotEqual(t, WorkerSeed(1, Train, 0), WorkerSeed(2, Train, 0))
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	man := NewManager(Workers(3))

	n, err := man.Generate(SplitConfig{Name: Train, Config: testConfig(dir)})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	splitDir := filepath.Join(dir, Train)
	count, err := CountSequences(splitDir)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	for i := 0; i < 4; i++ {
		seq, err := io.ReadNpyFile(filepath.Join(splitDir, SequenceName(i)))
		require.NoError(t, err)
		assert.Equal(t, []int{5, 1, 48, 64}, seq.Shape)
		assert.Equal(t, io.Uint8, seq.Type)
		assert.NotZero(t, seq.NonZero(), "sequence %d", i)
	}

	meta, err := io.ReadNpyFile(filepath.Join(splitDir, io.MetadataFile))
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5, 2, 2}, meta.Shape)
	assert.Equal(t, io.Int32, meta.Type)

	pts, err := io.ReadTrajectories(filepath.Join(splitDir, io.TrajectoryFile))
	require.NoError(t, err)
	assert.Len(t, pts, 4*5*2)
	assert.Equal(t, 3, pts[len(pts)-1].Sequence)

	m := io.Manifest{}
	require.NoError(t, io.ReadYAML(filepath.Join(splitDir, io.ManifestFile), &m))
	assert.Equal(t, 4, m.Sequences)
	assert.Equal(t, []int{1, 48, 64}, m.FrameShape)
	assert.Equal(t, 3, m.Workers)

	// The second run finds every file in place.
	n, err = man.Generate(SplitConfig{Name: Train, Config: testConfig(dir)})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGenerateRegeneratesPartialSplits(t *testing.T) {
	dir := t.TempDir()
	con := testConfig(dir)
	man := NewManager()

	_, err := man.Generate(SplitConfig{Name: Test, Config: con})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, Test, SequenceName(2))))

	n, err := man.Generate(SplitConfig{Name: Test, Config: con})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	con.Sequences = 2
	n, err = man.Generate(SplitConfig{Name: Test, Config: con})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	count, err := CountSequences(filepath.Join(dir, Test))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestGenerateEmptySplit(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	man := NewManager(Logger(zap.New(core).Sugar()))

	con := testConfig(t.TempDir())
	con.Sequences = 0
	n, err := man.Generate(SplitConfig{Name: Validation, Config: con})
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, 1, logs.FilterMessage("Split is empty, nothing to generate").Len())
	assert.Zero(t, logs.FilterMessage("Split already generated, skipping").Len())

	con.Sequences = 1
	_, err = man.Generate(SplitConfig{Name: Validation, Config: con})
	require.NoError(t, err)
	_, err = man.Generate(SplitConfig{Name: Validation, Config: con})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("Split already generated, skipping").Len())
}

func TestGenerateErrors(t *testing.T) {
	man := NewManager()
	con := testConfig(t.TempDir())

	_, err := man.Generate(SplitConfig{Name: "holdout", Config: con})
	assert.True(t, errors.Is(err, ErrInvalidSplit))

	con.ScreenHeight = 0
	_, err = man.Generate(SplitConfig{Name: Train, Config: con})
	assert.True(t, errors.Is(err, io.ErrInvalidConfig))
	_, err = os.Stat(filepath.Join(con.Output, Train))
	assert.True(t, os.IsNotExist(err))
}

func TestGenerateIsDeterministic(t *testing.T) {
	d1, d2 := t.TempDir(), t.TempDir()
	c1, c2 := testConfig(d1), testConfig(d2)
	c1.Occlusion, c2.Occlusion = true, true

	_, err := NewManager(Workers(2)).Generate(SplitConfig{Name: Train, Config: c1})
	require.NoError(t, err)
	_, err = NewManager(Workers(2)).Generate(SplitConfig{Name: Train, Config: c2})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		b1, err := os.ReadFile(filepath.Join(d1, Train, SequenceName(i)))
		require.NoError(t, err)
		b2, err := os.ReadFile(filepath.Join(d2, Train, SequenceName(i)))
		require.NoError(t, err)
		assert.Equal(t, b1, b2, "sequence %d", i)
	}
}

func TestGenerateRepresentations(t *testing.T) {
	tests := []struct {
		rep, channels string
		dof           int
		occlusion     bool
		shape         []int
	}{
		{io.RepresentationRaster, io.ChannelsLast, 1, false, []int{5, 48, 64, 1}},
		{io.RepresentationCentroid, io.ChannelsFirst, 2, true, []int{5, 6, 8}},
		{io.RepresentationFeatures, io.ChannelsFirst, 2, false, []int{5, 8}},
	}

	for _, test := range tests {
		con := testConfig(t.TempDir())
		con.Representation, con.Channels = test.rep, test.channels
		con.DOF, con.Occlusion = test.dof, test.occlusion

		n, err := NewManager().Generate(SplitConfig{Name: Validation, Config: con})
		require.NoError(t, err, test.rep)
		assert.Equal(t, 4, n)

		seq, err := io.ReadNpyFile(filepath.Join(con.Output, Validation, SequenceName(0)))
		require.NoError(t, err)
		assert.Equal(t, test.shape, seq.Shape, test.rep)
		assert.NotZero(t, seq.NonZero(), test.rep)
	}
}

func TestGenerateWithoutMetadata(t *testing.T) {
	con := testConfig(t.TempDir())
	con.SaveMetadata = false

	_, err := NewManager().Generate(SplitConfig{Name: Train, Config: con})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(con.Output, Train, io.MetadataFile))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(con.Output, Train, io.ManifestFile))
	assert.NoError(t, err)
}

func TestGenerateData(t *testing.T) {
	con := testConfig(t.TempDir())
	con.Sequences = 10
	con.SequenceLen = 3
	con.Balls = []int{1, 3}

	n, err := GenerateData(con)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.True(t, Generated(con))

	for split, want := range map[string]int{Train: 10, Validation: 1, Test: 1} {
		count, err := CountSequences(filepath.Join(con.Output, split))
		require.NoError(t, err)
		assert.Equal(t, want, count, split)
	}

	meta, err := io.ReadNpyFile(filepath.Join(con.Output, Train, io.MetadataFile))
	require.NoError(t, err)
	assert.Equal(t, []int{10, 3, 3, 2}, meta.Shape)

	dm := io.DatasetManifest{}
	require.NoError(t, io.ReadYAML(filepath.Join(con.Output, io.DatasetFile), &dm))
	assert.Equal(t, map[string]int{Train: 10, Validation: 1, Test: 1}, dm.Splits)
	assert.Equal(t, con.Balls, dm.Config.Balls)
	assert.NotEmpty(t, dm.RunID)

	assert.NoError(t, CheckDataset(con.Output))

	n, err = GenerateData(con)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGenerateDataInvalidConfig(t *testing.T) {
	con := testConfig(t.TempDir())
	con.DOF = 3
	_, err := GenerateData(con)
	assert.True(t, errors.Is(err, io.ErrInvalidConfig))
}

func TestCheckDataset(t *testing.T) {
	assert.Error(t, CheckDataset(filepath.Join(t.TempDir(), "missing")))

	dir := t.TempDir()
	assert.Error(t, CheckDataset(dir))

	for _, split := range Splits {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, split), 0755))
		blank := io.NewArray(io.Uint8, 2, 1, 4, 4)
		require.NoError(t, io.WriteNpyFile(filepath.Join(dir, split, SequenceName(0)), blank))
	}
	err := CheckDataset(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty sequence")

	for _, split := range Splits {
		lit := io.NewArray(io.Uint8, 2, 1, 4, 4)
		lit.Uint8s[3] = 255
		require.NoError(t, io.WriteNpyFile(filepath.Join(dir, split, SequenceName(0)), lit))
	}
	assert.NoError(t, CheckDataset(dir))
}
