// Package perf holds the prometheus instrumentation for the driver,
// one time series per device.
package perf

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	samples = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "px4flow_samples_total",
			Help: "Successfully collected measurement cycles.",
		},
		[]string{"device"},
	)

	commsErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "px4flow_comms_errors_total",
			Help: "Failed bus transfers, measure or collect step.",
		},
		[]string{"device"},
	)

	sampleSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "px4flow_sample_seconds",
			Help:    "Duration of one collect step, read through publish.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 10),
		},
		[]string{"device"},
	)
)

func init() {
	prometheus.MustRegister(samples, commsErrors, sampleSeconds)
}

// Samples returns the cycle counter for one device.
func Samples(device string) prometheus.Counter {
	return samples.WithLabelValues(device)
}

// CommsErrors returns the transfer-failure counter for one device.
func CommsErrors(device string) prometheus.Counter {
	return commsErrors.WithLabelValues(device)
}

// SampleSeconds returns the collect-duration histogram for one device.
func SampleSeconds(device string) prometheus.Observer {
	return sampleSeconds.WithLabelValues(device)
}
