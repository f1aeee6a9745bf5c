// Package metrics defines the Prometheus instrumentation exposed by a
// bitforge engine. It follows the same promauto-registered-counters shape
// used elsewhere in the retrieved corpus for WAL/log-structured stores.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds every metric a bitforge engine updates. A nil *Recorder is
// valid and every method on it is a no-op, so callers that don't want
// metrics (library embedders, most tests) can simply pass nil instead of
// threading an enabled flag through every call site.
type Recorder struct {
	sets           prometheus.Counter
	gets           prometheus.Counter
	removes        prometheus.Counter
	getMisses      prometheus.Counter
	removeMisses   prometheus.Counter
	compactions    prometheus.Counter
	bytesAppended  prometheus.Counter
	activeSegSize  prometheus.Gauge
	activeSegID    prometheus.Gauge
	compactionSecs prometheus.Histogram
	liveKeys       prometheus.Gauge
	liveBytes      prometheus.Gauge
}

// New registers bitforge's metrics against reg and returns a Recorder.
// Pass prometheus.NewRegistry() for an isolated registry (tests, multiple
// engines in one process) or prometheus.DefaultRegisterer for the global one.
func New(reg prometheus.Registerer) *Recorder {
	return &Recorder{
		sets: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "bitforge_sets_total",
			Help: "Number of Set operations completed.",
		}),
		gets: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "bitforge_gets_total",
			Help: "Number of Get operations completed.",
		}),
		removes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "bitforge_removes_total",
			Help: "Number of Remove operations completed.",
		}),
		getMisses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "bitforge_get_misses_total",
			Help: "Number of Get calls for a key with no live entry.",
		}),
		removeMisses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "bitforge_remove_misses_total",
			Help: "Number of Remove calls for a key with no live entry.",
		}),
		compactions: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "bitforge_compactions_total",
			Help: "Number of times the active segment was compacted.",
		}),
		bytesAppended: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "bitforge_bytes_appended_total",
			Help: "Total bytes appended to segment files, including frame headers.",
		}),
		activeSegSize: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "bitforge_active_segment_bytes",
			Help: "Current size in bytes of the active segment file.",
		}),
		activeSegID: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "bitforge_active_segment_id",
			Help: "Id of the currently active segment.",
		}),
		compactionSecs: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "bitforge_compaction_duration_seconds",
			Help:    "Time spent rewriting the active segment during compaction.",
			Buckets: prometheus.DefBuckets,
		}),
		liveKeys: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "bitforge_live_keys",
			Help: "Number of live keys currently tracked by the index.",
		}),
		liveBytes: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "bitforge_live_bytes",
			Help: "Sum of on-disk record sizes for every live key, per the index.",
		}),
	}
}

func (r *Recorder) ObserveSet(frameBytes int) {
	if r == nil {
		return
	}
	r.sets.Inc()
	r.bytesAppended.Add(float64(frameBytes))
}

func (r *Recorder) ObserveGet(hit bool) {
	if r == nil {
		return
	}
	r.gets.Inc()
	if !hit {
		r.getMisses.Inc()
	}
}

func (r *Recorder) ObserveRemove(hit bool, frameBytes int) {
	if r == nil {
		return
	}
	r.removes.Inc()
	if !hit {
		r.removeMisses.Inc()
		return
	}
	r.bytesAppended.Add(float64(frameBytes))
}

func (r *Recorder) ObserveCompaction(seconds float64) {
	if r == nil {
		return
	}
	r.compactions.Inc()
	r.compactionSecs.Observe(seconds)
}

func (r *Recorder) SetActiveSegment(id uint32, size int64) {
	if r == nil {
		return
	}
	r.activeSegID.Set(float64(id))
	r.activeSegSize.Set(float64(size))
}

// SetLiveStats records the number of live keys and their total on-disk
// footprint, letting an operator see at a glance how much of the active
// segment is reclaimable garbage versus live data.
func (r *Recorder) SetLiveStats(keys int, bytes int64) {
	if r == nil {
		return
	}
	r.liveKeys.Set(float64(keys))
	r.liveBytes.Set(float64(bytes))
}
