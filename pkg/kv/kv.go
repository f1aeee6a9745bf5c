// Package kv provides bitforge's engine facade: a single capability
// interface with two concrete backends. It is the entry point embedders
// use directly, and the one cmd/kvs-server dispatches network requests
// against.
package kv

import (
	"context"

	"go.uber.org/zap"

	"github.com/nilotpal/bitforge/internal/boltengine"
	"github.com/nilotpal/bitforge/internal/engine"
	"github.com/nilotpal/bitforge/internal/metrics"
	"github.com/nilotpal/bitforge/pkg/logger"
	"github.com/nilotpal/bitforge/pkg/options"
)

// Engine is the capability every backend implements: set, get, remove.
// Both backends share identical semantics (spec.md §4.1) — get returns
// found=false rather than an error for an absent key, remove on an absent
// key is an error, and every mutation is durable once its call returns.
type Engine interface {
	Set(key, value string) error
	Get(key string) (value string, found bool, err error)
	Remove(key string) error
	Close() error
}

// New constructs the backend selected by opts.Engine: the bitcask log
// engine (options.KindBitcask, CLI value "kvs") or the bbolt-backed
// engine (options.KindBolt, CLI value "sled").
func New(ctx context.Context, service string, opts ...options.OptionFunc) (Engine, error) {
	log := logger.New(service)
	o := options.New(opts...)

	switch o.Engine {
	case options.KindBolt:
		return boltengine.New(o, log)
	default:
		return engine.New(ctx, &engine.Config{Options: o, Logger: log})
	}
}

// NewWithMetrics is like New but additionally wires a prometheus Recorder
// into the bitcask backend (the bolt backend has no engine-level metrics
// of its own beyond what bbolt itself exposes).
func NewWithMetrics(ctx context.Context, log *zap.SugaredLogger, o *options.Options, rec *metrics.Recorder) (Engine, error) {
	switch o.Engine {
	case options.KindBolt:
		return boltengine.New(o, log)
	default:
		return engine.New(ctx, &engine.Config{Options: o, Logger: log, Metrics: rec})
	}
}
