package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frameextractor_runs_total",
		Help: "Total number of pipeline runs, by terminal state",
	}, []string{"state"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "frameextractor_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frameextractor_frames_extracted_total",
		Help: "Total number of frames encoded across all runs",
	})

	FrameSizeBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "frameextractor_frame_size_bytes",
		Help:    "Size of encoded frame files",
		Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
	}, []string{"format"})

	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "frameextractor_active_runs",
		Help: "Number of pipeline runs currently in progress",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frameextractor_retry_total",
		Help: "Total number of queued run retries",
	}, []string{"attempt"})

	DeadLetteredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frameextractor_dead_lettered_total",
		Help: "Total number of queued requests moved to the dead letter queue",
	}, []string{"reason"})
)
