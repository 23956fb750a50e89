package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	audioSessionSubsystem = "audiosession"

	opLabelName     = "op"
	statusLabelName = "status"
	reasonLabelName = "reason"

	SuccessLabel = "success"
	FailLabel    = "fail"

	// 跳过原因
	SkipReasonDevice       = "device"
	SkipReasonSystem       = "system_session"
	SkipReasonVolume       = "volume_unavailable"
	SkipReasonSessionQuery = "session_query"

	// 缓存淘汰原因
	EvictReasonAbsent = "absent"
	EvictReasonPrune  = "prune"
)

var (
	AudioSessionOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mixdeckNamespace,
			Subsystem: audioSessionSubsystem,
			Name:      "operations_total",
			Help:      "count of audio session operations by result",
		}, []string{opLabelName, statusLabelName})

	AudioSessionOperationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: mixdeckNamespace,
			Subsystem: audioSessionSubsystem,
			Name:      "operation_latency",
			Help:      "latency of audio session operations in milliseconds",
			Buckets:   buckets,
		}, []string{opLabelName})

	AudioSessionEnumerated = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: mixdeckNamespace,
			Subsystem: audioSessionSubsystem,
			Name:      "enumerated_sessions",
			Help:      "number of sessions observed by the latest enumeration",
		})

	AudioSessionSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mixdeckNamespace,
			Subsystem: audioSessionSubsystem,
			Name:      "skipped_items_total",
			Help:      "devices or sessions skipped during enumeration",
		}, []string{reasonLabelName})

	AudioSessionFanOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mixdeckNamespace,
			Subsystem: audioSessionSubsystem,
			Name:      "fanout_applied_total",
			Help:      "per-session applications of volume/mute commands",
		}, []string{opLabelName, statusLabelName})

	AudioSessionCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: mixdeckNamespace,
			Subsystem: audioSessionSubsystem,
			Name:      "cache_entries",
			Help:      "number of cached sessions",
		})

	AudioSessionCacheEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mixdeckNamespace,
			Subsystem: audioSessionSubsystem,
			Name:      "cache_evictions_total",
			Help:      "cached sessions evicted by reason",
		}, []string{reasonLabelName})

	AudioDeviceChanges = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: mixdeckNamespace,
			Subsystem: audioSessionSubsystem,
			Name:      "default_device_changes_total",
			Help:      "number of observed default render device switches",
		})
)

func registerAudioSessionMetrics(r prometheus.Registerer) {
	r.MustRegister(AudioSessionOperations)
	r.MustRegister(AudioSessionOperationLatency)
	r.MustRegister(AudioSessionEnumerated)
	r.MustRegister(AudioSessionSkipped)
	r.MustRegister(AudioSessionFanOut)
	r.MustRegister(AudioSessionCacheEntries)
	r.MustRegister(AudioSessionCacheEvictions)
	r.MustRegister(AudioDeviceChanges)
}
