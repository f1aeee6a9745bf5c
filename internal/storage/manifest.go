package storage

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/nilotpal/bitforge/pkg/errors"
)

// manifestFileName is the fixed name of the manifest file (C3): a 4-byte
// little-endian integer naming the active segment id.
const manifestFileName = "current"

func manifestPath(dataDir string) string {
	return filepath.Join(dataDir, manifestFileName)
}

// readManifest reads the active segment id from dataDir's manifest file.
// existed is false when the manifest was absent and has just been created
// with id 0, matching spec.md §4.2 step 2.
func readManifest(dataDir string) (id uint32, existed bool, err error) {
	path := manifestPath(dataDir)

	f, openErr := os.Open(path)
	if openErr != nil {
		if !os.IsNotExist(openErr) {
			return 0, false, errors.NewStorageError(
				openErr, errors.ErrorCodeIO, "Failed to open manifest file",
			).WithPath(path)
		}

		if err := writeManifest(dataDir, 0); err != nil {
			return 0, false, err
		}
		return 0, false, nil
	}
	defer f.Close()

	var buf [4]byte
	if _, err := io.ReadFull(f, buf[:]); err != nil {
		return 0, false, errors.NewStorageError(
			err, errors.ErrorCodeHeaderReadFailure, "Failed to read manifest contents",
		).WithPath(path)
	}

	return binary.LittleEndian.Uint32(buf[:]), true, nil
}

// writeManifest rewrites dataDir's manifest file to name id as the active
// segment, fsyncing it so the pointer itself is durable even though
// ordinary segment appends are not required to be.
func writeManifest(dataDir string, id uint32) error {
	path := manifestPath(dataDir)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to open manifest file for writing",
		).WithPath(path)
	}
	defer f.Close()

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], id)

	if _, err := f.Write(buf[:]); err != nil {
		return errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to write manifest contents",
		).WithPath(path).WithDetail("segmentID", id)
	}

	if err := f.Sync(); err != nil {
		return errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to sync manifest file",
		).WithPath(path).WithDetail("segmentID", id)
	}

	return nil
}
