package bouncing

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/phil-mansfield/bouncing/io"
)

// CheckDataset verifies a generated dataset: every split directory must
// exist and hold at least one sequence, every sequence file must be readable
// and contain something other than zeros, and if a split has a manifest its
// sequence count must match. Every problem found is returned, joined into a
// single error.
func CheckDataset(dir string) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%s does not exist or is not a directory", dir)
	}

	var errs []error
	for _, split := range Splits {
		errs = append(errs, checkSplitDir(filepath.Join(dir, split))...)
	}
	return errors.Join(errs...)
}

func checkSplitDir(dir string) []error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return []error{fmt.Errorf("%s does not exist or is not a directory", dir)}
	}

	files, err := filepath.Glob(filepath.Join(dir, "bouncing_balls_*.npy"))
	if err != nil {
		return []error{err}
	} else if len(files) == 0 {
		return []error{fmt.Errorf("%s is empty", dir)}
	}

	var errs []error
	for _, file := range files {
		seq, err := io.ReadNpyFile(file)
		if err != nil {
			errs = append(errs, err)
		} else if seq.NonZero() == 0 {
			errs = append(errs, fmt.Errorf("%s is an empty sequence", file))
		}
	}

	manifest := filepath.Join(dir, io.ManifestFile)
	if _, err := os.Stat(manifest); err == nil {
		m := io.Manifest{}
		if err := io.ReadYAML(manifest, &m); err != nil {
			errs = append(errs, err)
		} else if m.Sequences != len(files) {
			errs = append(errs, fmt.Errorf(
				"%s lists %d sequences, but %s holds %d",
				manifest, m.Sequences, dir, len(files),
			))
		}
	}

	return errs
}
