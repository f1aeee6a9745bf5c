package storage

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/nilotpal/bitforge/pkg/options"
	"go.uber.org/zap"
)

// Storage owns the active segment file for one store directory: an append
// handle and an independent read handle into the same file, so appends
// never perturb a concurrent read's cursor (and vice versa), plus the size
// counter compaction decisions are based on.
type Storage struct {
	dataDir         string
	activeSegmentID uint32

	appendFile *os.File
	readFile   *os.File

	size   int64
	mu     sync.Mutex
	closed atomic.Bool

	options *options.Options
	log     *zap.SugaredLogger
}

// Config encapsulates all the configuration parameters required to initialize a Storage instance.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}
