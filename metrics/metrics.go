// Package metrics defines the instrumentation surface the SDK reports
// through, with Prometheus and no-op recorders.
package metrics

import "time"

// Recorder receives SDK events and latencies.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
