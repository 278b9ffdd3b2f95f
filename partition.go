package bouncing

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Partition splits the indices [0, sequences) into one contiguous Span per
// worker. Each span has sequences/workers elements, and the first
// sequences%workers spans get one more. Spans may be empty if there are more
// workers than sequences. A non-positive worker count is treated as one.
func Partition(sequences, workers int) []Span {
	if workers < 1 {
		workers = 1
	}
	if sequences < 0 {
		sequences = 0
	}

	base, rem := sequences/workers, sequences%workers
	spans := make([]Span, workers)
	start := 0
	for i := range spans {
		n := base
		if i < rem {
			n++
		}
		spans[i] = Span{Worker: i, Start: start, End: start + n}
		start += n
	}
	return spans
}

// WorkerSeed derives the seed of a worker's random number generator from the
// master seed of a dataset, the split and the worker index.
func WorkerSeed(master int64, split string, worker int) uint64 {
	return xxhash.Sum64String(fmt.Sprintf("%d/%s/%d", master, split, worker))
}
