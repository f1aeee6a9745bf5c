// Package filesys provides small filesystem helpers shared by the storage
// and segment-naming layers.
package filesys

import "path/filepath"

// ReadDir lists file paths matching dirName, which may contain glob
// patterns (e.g. "mydir/log_*"). Used by pkg/seginfo to enumerate segment
// files without hand-rolling directory iteration plus suffix matching.
func ReadDir(dirName string) ([]string, error) {
	return filepath.Glob(dirName)
}
