// Package metrics defines the bridge's prometheus collectors. They register
// on the default registerer so any embedding process that already serves
// /metrics picks them up; the simulator CLI serves them via promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ThunkCalls counts every call the host makes through a synthesized
	// dispatch table, by interface, method and outcome (ok, invalid_handle,
	// fault, rejected).
	ThunkCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vrbridge_thunk_calls_total",
			Help: "Calls made by the host through synthesized dispatch tables.",
		},
		[]string{"interface", "method", "outcome"},
	)

	// Faults counts panics intercepted at the thunk boundary. Any nonzero
	// value is a driver bug that the bridge survived.
	Faults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vrbridge_thunk_faults_total",
			Help: "Driver faults absorbed at the thunk boundary.",
		},
		[]string{"interface", "method"},
	)

	// LiveHandles gauges objects currently published to the host.
	LiveHandles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vrbridge_live_handles",
			Help: "Bridge objects currently reachable by the host.",
		},
	)

	// HostCallbacks counts outbound calls into host-supplied function
	// pointers, by callback and result (ok, error).
	HostCallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vrbridge_host_callbacks_total",
			Help: "Outbound calls into host-supplied interfaces.",
		},
		[]string{"callback", "result"},
	)

	// PoseLatency observes how long a device's GetPose takes under the
	// object lock. The host polls this on its frame cadence, so the tail
	// here is frame budget spent inside the driver.
	PoseLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vrbridge_pose_latency_seconds",
			Help:    "Latency of driver GetPose calls.",
			Buckets: prometheus.ExponentialBuckets(10e-6, 4, 8),
		},
	)

	// RegisteredDevices counts device registrations by device class and
	// host verdict.
	RegisteredDevices = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vrbridge_registered_devices_total",
			Help: "Tracked devices announced to the host.",
		},
		[]string{"class", "accepted"},
	)
)

const (
	OutcomeOK            = "ok"
	OutcomeInvalidHandle = "invalid_handle"
	OutcomeFault         = "fault"
	OutcomeRejected      = "rejected"
)

func init() {
	prometheus.MustRegister(
		ThunkCalls,
		Faults,
		LiveHandles,
		PoseLatency,
		HostCallbacks,
		RegisteredDevices,
	)
}
