// Package options provides data structures and functions for configuring
// bitforge. It defines the parameters that control storage behavior —
// directory path and segment compaction threshold — and which engine
// backend and network address the CLIs/server use.
package options

import (
	"strings"

	"github.com/nilotpal/bitforge/pkg/errors"
)

// EngineKind selects which kv.Engine backend to construct. Values match
// spec.md §6's CLI flag values verbatim ("kvs", "sled") even though they
// now select the bitcask/bolt implementations respectively.
type EngineKind string

// segmentOptions defines configurable parameters for segment rotation.
type segmentOptions struct {
	// Size is the compaction threshold in bytes: a Set or Remove whose
	// append brings the active segment to this size compacts before it
	// returns.
	//
	//  - Default: 4MiB (spec.md §4.2's reference value)
	//  - Minimum: 1MiB
	//  - Maximum: 4GiB
	Size uint64 `json:"maxSegmentSize"`
}

// Options defines the configuration parameters for a bitforge store.
type Options struct {
	// DataDir is the directory segment files and the manifest live in.
	//
	// Default: "/var/lib/bitforge"
	DataDir string `json:"dataDir"`

	// Engine selects the backend: KindBitcask ("kvs") or KindBolt ("sled").
	Engine EngineKind `json:"engine"`

	// Addr is the TCP address kvs-server listens on.
	Addr string `json:"addr"`

	// MetricsAddr, if non-empty, is the HTTP address kvs-server serves
	// Prometheus metrics on. Empty means no metrics listener starts.
	MetricsAddr string `json:"metricsAddr"`

	// SegmentOptions configures segment rotation.
	SegmentOptions *segmentOptions `json:"segmentOptions"`
}

// OptionFunc is a function type that modifies bitforge's configuration.
type OptionFunc func(*Options)

// WithDefaultOptions applies bitforge's baseline configuration.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		opts := NewDefaultOptions()
		o.DataDir = opts.DataDir
		o.Engine = opts.Engine
		o.Addr = opts.Addr
		o.MetricsAddr = opts.MetricsAddr
		o.SegmentOptions = opts.SegmentOptions
	}
}

// WithDataDir sets the primary data directory.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// WithEngine selects the engine backend.
func WithEngine(kind EngineKind) OptionFunc {
	return func(o *Options) {
		if kind == KindBitcask || kind == KindBolt {
			o.Engine = kind
		}
	}
}

// WithAddr sets the TCP address the server listens on.
func WithAddr(addr string) OptionFunc {
	return func(o *Options) {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			o.Addr = addr
		}
	}
}

// WithMetricsAddr sets the HTTP address metrics are served on. An empty
// address (the default) disables the metrics listener.
func WithMetricsAddr(addr string) OptionFunc {
	return func(o *Options) {
		o.MetricsAddr = strings.TrimSpace(addr)
	}
}

// WithSegmentSize sets the compaction threshold, in bytes.
func WithSegmentSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size >= MinSegmentSize && size <= MaxSegmentSize {
			o.SegmentOptions.Size = size
		}
	}
}

// New builds an Options by applying fns over bitforge's defaults.
func New(fns ...OptionFunc) *Options {
	opts := NewDefaultOptions()
	for _, fn := range fns {
		fn(&opts)
	}
	return &opts
}

// Validate checks that o describes a usable configuration, returning a
// *errors.ValidationError (pkg/errors) describing the first problem found.
// OptionFuncs silently ignore malformed input (WithSegmentSize out of
// range, WithDataDir given an all-whitespace string) rather than erroring
// at option-application time, so New's caller is expected to Validate
// before opening an engine against the result.
func (o *Options) Validate() error {
	if strings.TrimSpace(o.DataDir) == "" {
		return errors.NewRequiredFieldError("DataDir")
	}

	if o.SegmentOptions == nil {
		return errors.NewConfigurationValidationError("SegmentOptions", "segment options must not be nil")
	}

	if o.SegmentOptions.Size < MinSegmentSize || o.SegmentOptions.Size > MaxSegmentSize {
		return errors.NewFieldRangeError("SegmentOptions.Size", o.SegmentOptions.Size, MinSegmentSize, MaxSegmentSize)
	}

	if o.Engine != KindBitcask && o.Engine != KindBolt {
		return errors.NewFieldFormatError("Engine", o.Engine, `"kvs" or "sled"`)
	}

	return nil
}
