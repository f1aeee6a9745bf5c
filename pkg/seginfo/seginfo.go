// Package seginfo names and discovers segment files.
//
// Filename format: log_{N}, where N is a non-negative decimal integer — no
// prefix, no timestamp suffix, directly inside the store directory. A
// store has exactly one active segment at a time; any other log_{N} file
// found on disk is an orphan left behind by a crash mid-compaction.
package seginfo

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/nilotpal/bitforge/pkg/filesys"
)

const segmentPrefix = "log_"

// SegmentName returns the filename for segment id.
func SegmentName(id uint32) string {
	return fmt.Sprintf("%s%d", segmentPrefix, id)
}

// SegmentPath joins dataDir with the filename for segment id.
func SegmentPath(dataDir string, id uint32) string {
	return filepath.Join(dataDir, SegmentName(id))
}

// ParseSegmentID extracts the id from a log_{N} filename (or full path).
func ParseSegmentID(fullPathOrName string) (uint32, error) {
	_, filename := filepath.Split(fullPathOrName)

	if !strings.HasPrefix(filename, segmentPrefix) {
		return 0, fmt.Errorf("filename %s does not start with %q", filename, segmentPrefix)
	}

	idStr := strings.TrimPrefix(filename, segmentPrefix)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("failed to parse segment ID %q: %w", idStr, err)
	}

	return uint32(id), nil
}

// ListSegmentIDs returns every log_{N} id found directly under dataDir,
// sorted ascending. Used during recovery to find orphaned segments left by
// a crash mid-compaction.
func ListSegmentIDs(dataDir string) ([]uint32, error) {
	pattern := filepath.Join(dataDir, segmentPrefix+"*")

	matches, err := filesys.ReadDir(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to read segment directory with pattern %s: %w", pattern, err)
	}

	ids := make([]uint32, 0, len(matches))
	for _, m := range matches {
		id, err := ParseSegmentID(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	slices.Sort(ids)
	return ids, nil
}

// OrphanSegmentIDs returns the ids present on disk other than active —
// files that should not exist in steady state (spec.md §3: "older segments
// do not exist during steady-state operation") but can appear transiently
// after a crash mid-compaction.
func OrphanSegmentIDs(dataDir string, active uint32) ([]uint32, error) {
	ids, err := ListSegmentIDs(dataDir)
	if err != nil {
		return nil, err
	}

	orphans := make([]uint32, 0)
	for _, id := range ids {
		if id != active {
			orphans = append(orphans, id)
		}
	}
	return orphans, nil
}

// GetFileInfo safely retrieves file system metadata for a given path.
func GetFileInfo(filePath string) (os.FileInfo, error) {
	file, err := os.OpenFile(filePath, os.O_RDONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info for %s: %w", filePath, err)
	}

	return stat, nil
}
