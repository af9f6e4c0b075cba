package platform

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrRootNotFound is returned by FindRoot when no indicator is found.
var ErrRootNotFound = errors.New("root not found")

// rootIndicators mark the root of a notes directory.
var rootIndicators = []string{ConfigFileName, ".sidenote", ".git"}

// FindRoot looks upwards from startDir for a notes root: a directory holding
// a .sidenote.yaml file, a .sidenote directory or a .git directory.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		for _, name := range rootIndicators {
			if hasFile(dir, name) {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", ErrRootNotFound
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
