package io

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/gcfg.v1"
	"gopkg.in/yaml.v3"

	"github.com/phil-mansfield/bouncing/geom"
)

const (
	ExampleGenerateFile = `[Generate]

#######################
# Required Parameters #
#######################

# Directory which the train, validation and test splits are written to.
Output = data

# Number of training sequences. The validation and test splits each get a
# tenth as many.
Sequences = 10000
# Number of frames in each sequence.
SequenceLen = 20

#######################
# Optional Parameters #
#######################

# The number of balls in a sequence is drawn from this set. Repeat the line
# to add more options.
# Balls = 3
# Balls = 6

# Radius of each ball in pixels.
# BallRadius = 5

# Adds a static rectangle to every arena which balls are aimed through. If
# the rectangle isn't given, a 20 x 10 box in the center of a 64 x 48 arena
# is scaled to the arena size.
# Occlusion = true
# OcclusionX = 22
# OcclusionY = 19
# OcclusionWidth = 20
# OcclusionHeight = 10

# Arena size in pixels and the number of pixels per physics unit.
# ScreenHeight = 48
# ScreenWidth = 64
# PPM = 1

# Mean ball speed in pixels per second. DOF must be 1 (horizontal motion
# only) or 2.
# MeanVel = 5000
# DOF = 2

# Channels must be one of [ First | Last ] and Representation must be one of
# [ Raster | Centroid | Features ].
# Channels = First
# Representation = Raster

# FPS = 60

# Also write metadata.npy and trajectories.txt to each split.
# SaveMetadata = true

# Number of worker goroutines. 0 uses one per core.
# Workers = 0
# Seed = 0

# Output files which are useful for profiling and debugging. Generally, there
# isn't a reason to use these unless something goes wrong.
# ProfileFile = prof.out
# LogFile = log.out`
)

// ErrInvalidConfig is returned (wrapped) by Config.Check.
var ErrInvalidConfig = errors.New("invalid config")

const (
	ChannelsFirst = "First"
	ChannelsLast  = "Last"

	RepresentationRaster   = "Raster"
	RepresentationCentroid = "Centroid"
	RepresentationFeatures = "Features"
)

var (
	channelOrders   = []string{ChannelsFirst, ChannelsLast}
	representations = []string{
		RepresentationRaster, RepresentationCentroid, RepresentationFeatures,
	}
)

// Config describes a dataset. Fields can be read from the [Generate] section
// of a gcfg file or from a YAML document.
type Config struct {
	// Required
	Output      string `yaml:"data_dir"`
	Sequences   int    `yaml:"sequences"`
	SequenceLen int    `yaml:"sequence_len"`

	// Optional
	Balls      []int   `yaml:"balls"`
	BallRadius float64 `yaml:"ball_radius"`

	Occlusion       bool    `yaml:"occlusion"`
	OcclusionX      float64 `yaml:"occlusion_x"`
	OcclusionY      float64 `yaml:"occlusion_y"`
	OcclusionWidth  float64 `yaml:"occlusion_width"`
	OcclusionHeight float64 `yaml:"occlusion_height"`

	ScreenHeight int     `yaml:"screen_height"`
	ScreenWidth  int     `yaml:"screen_width"`
	PPM          float64 `yaml:"ppm"`

	MeanVel float64 `yaml:"mean_vel"`
	DOF     int     `yaml:"dof"`

	Channels       string `yaml:"channels"`
	Representation string `yaml:"representation"`
	FPS            int    `yaml:"fps"`

	SaveMetadata bool  `yaml:"save_metadata"`
	Workers      int   `yaml:"workers"`
	Seed         int64 `yaml:"seed"`

	LogFile     string `yaml:"log_file"`
	ProfileFile string `yaml:"profile_file"`
}

type GenerateWrapper struct {
	Generate Config
}

// DefaultGenerateWrapper returns a wrapper around a Config holding the
// default value of every optional field. Balls is left empty since gcfg
// appends to multi-valued variables; FillDefaults sets it after reading.
func DefaultGenerateWrapper() *GenerateWrapper {
	con := Config{}
	con.Output = "data"
	con.BallRadius = 5
	con.ScreenHeight = 48
	con.ScreenWidth = 64
	con.PPM = geom.DefaultPPM
	con.MeanVel = 5000
	con.DOF = 2
	con.Channels = ChannelsFirst
	con.Representation = RepresentationRaster
	con.FPS = 60
	con.SaveMetadata = true
	return &GenerateWrapper{con}
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
	con := DefaultGenerateWrapper().Generate
	con.FillDefaults()
	return con
}

// FillDefaults sets the fields whose defaults depend on other fields.
func (con *Config) FillDefaults() {
	if len(con.Balls) == 0 {
		con.Balls = []int{3}
	}
	if con.OcclusionWidth == 0 && con.OcclusionHeight == 0 {
		w, h := float64(con.ScreenWidth), float64(con.ScreenHeight)
		con.OcclusionWidth = 20 * w / 64
		con.OcclusionHeight = 10 * h / 48
		con.OcclusionX = (w - con.OcclusionWidth) / 2
		con.OcclusionY = (h - con.OcclusionHeight) / 2
	}
	if c := canonical(con.Channels, channelOrders); c != "" {
		con.Channels = c
	}
	if r := canonical(con.Representation, representations); r != "" {
		con.Representation = r
	}
}

// ReadConfig reads a Config from a gcfg file, or from a YAML file if the name
// ends in .yaml or .yml. Defaults are filled in, but the Config is not
// checked.
func ReadConfig(fname string) (*Config, error) {
	wrap := DefaultGenerateWrapper()

	switch strings.ToLower(filepath.Ext(fname)) {
	case ".yaml", ".yml":
		f, err := os.Open(fname)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&wrap.Generate); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", fname, err)
		}
	default:
		if err := gcfg.ReadFileInto(wrap, fname); err != nil {
			return nil, err
		}
	}

	con := &wrap.Generate
	con.FillDefaults()
	return con, nil
}

func (con *Config) ValidOutput() bool      { return con.Output != "" }
func (con *Config) ValidSequences() bool   { return con.Sequences >= 0 }
func (con *Config) ValidSequenceLen() bool { return con.SequenceLen > 0 }
func (con *Config) ValidBallRadius() bool  { return con.BallRadius > 0 }
func (con *Config) ValidPPM() bool         { return con.PPM > 0 }
func (con *Config) ValidMeanVel() bool     { return con.MeanVel >= 0 }
func (con *Config) ValidDOF() bool         { return con.DOF == 1 || con.DOF == 2 }
func (con *Config) ValidFPS() bool         { return con.FPS > 0 }
func (con *Config) ValidWorkers() bool     { return con.Workers >= 0 }

func (con *Config) ValidBalls() bool {
	if len(con.Balls) == 0 {
		return false
	}
	for _, n := range con.Balls {
		if n <= 0 {
			return false
		}
	}
	return true
}

func (con *Config) ValidScreen() bool {
	return con.ScreenHeight > 0 && con.ScreenWidth > 0
}

func (con *Config) ValidChannels() bool {
	return canonical(con.Channels, channelOrders) != ""
}

func (con *Config) ValidRepresentation() bool {
	return canonical(con.Representation, representations) != ""
}

// ValidOcclusion returns true if occlusion is disabled or if the occlusion
// rectangle leaves room to spawn balls around it.
func (con *Config) ValidOcclusion() bool {
	return !con.Occlusion ||
		con.OcclusionRect().Fits(con.ScreenHeight, con.ScreenWidth)
}

// Check returns an error wrapping ErrInvalidConfig describing the first
// invalid field, if any.
func (con *Config) Check() error {
	checks := []struct {
		ok   bool
		name string
	}{
		{con.ValidOutput(), "Output"},
		{con.ValidSequences(), "Sequences"},
		{con.ValidSequenceLen(), "SequenceLen"},
		{con.ValidBalls(), "Balls"},
		{con.ValidBallRadius(), "BallRadius"},
		{con.ValidScreen(), "ScreenHeight/ScreenWidth"},
		{con.ValidPPM(), "PPM"},
		{con.ValidMeanVel(), "MeanVel"},
		{con.ValidDOF(), "DOF"},
		{con.ValidChannels(), "Channels"},
		{con.ValidRepresentation(), "Representation"},
		{con.ValidFPS(), "FPS"},
		{con.ValidWorkers(), "Workers"},
		{con.ValidOcclusion(), "Occlusion*"},
	}

	for _, c := range checks {
		if !c.ok {
			return fmt.Errorf(
				"%w: invalid/non-existent '%s' value", ErrInvalidConfig, c.name,
			)
		}
	}
	return nil
}

// Frame returns the coordinate frame of the arena.
func (con *Config) Frame() (geom.Frame, error) {
	return geom.NewFrame(con.ScreenHeight, con.ScreenWidth, con.PPM)
}

// OcclusionRect returns the occlusion rectangle in the screen frame.
func (con *Config) OcclusionRect() geom.Rect {
	return geom.Rect{
		X: con.OcclusionX, Y: con.OcclusionY,
		W: con.OcclusionWidth, H: con.OcclusionHeight,
	}
}

// MaxBalls returns the largest number of balls any sequence can have.
func (con *Config) MaxBalls() int {
	max := 0
	for _, n := range con.Balls {
		if n > max {
			max = n
		}
	}
	return max
}

// canonical returns the element of options which matches s without regard
// to case, or "" if there isn't one.
func canonical(s string, options []string) string {
	for _, opt := range options {
		if strings.EqualFold(s, opt) {
			return opt
		}
	}
	return ""
}
