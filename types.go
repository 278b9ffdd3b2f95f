package bouncing

import (
	"errors"
	"fmt"
	"slices"

	"github.com/phil-mansfield/bouncing/io"
)

const (
	Train      = "train"
	Validation = "validation"
	Test       = "test"
)

// Splits lists the splits of a dataset in the order they are generated.
var Splits = []string{Train, Validation, Test}

// ErrInvalidSplit is returned (wrapped) when a split isn't one of Splits.
var ErrInvalidSplit = errors.New("invalid split")

// SplitConfig is the configuration for one split of a dataset. Config.Sequences
// is the number of sequences in this split.
type SplitConfig struct {
	Name   string
	Config io.Config
}

// Span is the contiguous range of sequence indices [Start, End) assigned to a
// single worker.
type Span struct {
	Worker     int
	Start, End int
}

func (s Span) Len() int { return s.End - s.Start }

func (s Span) String() string {
	return fmt.Sprintf("worker %d: [%d, %d)", s.Worker, s.Start, s.End)
}

// SplitConfigs returns the configs of the train, validation and test splits
// of a dataset. Validation and test each get a tenth of the training
// sequences. base is not modified.
func SplitConfigs(base io.Config) []SplitConfig {
	sizes := map[string]int{
		Train:      base.Sequences,
		Validation: base.Sequences / 10,
		Test:       base.Sequences / 10,
	}

	out := make([]SplitConfig, len(Splits))
	for i, name := range Splits {
		con := base
		con.Balls = slices.Clone(base.Balls)
		con.Sequences = sizes[name]
		out[i] = SplitConfig{Name: name, Config: con}
	}
	return out
}

func checkSplit(name string) error {
	if !slices.Contains(Splits, name) {
		return fmt.Errorf("%w: '%s' must be one of %v", ErrInvalidSplit, name, Splits)
	}
	return nil
}
