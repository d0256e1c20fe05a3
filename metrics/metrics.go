// metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Recorder collects the results of one provisioning run on a private
// registry, so they can be written for the node_exporter textfile collector.
type Recorder struct {
	reg      *prometheus.Registry
	status   *prometheus.GaugeVec
	duration *prometheus.GaugeVec
	lastRun  prometheus.Gauge
	success  prometheus.Gauge
}

// Statuses exported for every index so dashboards see explicit zeros.
var Statuses = []string{"created", "present", "missing", "conflict", "failed", "skipped"}

// NewRecorder registers the run metrics on a fresh registry.
func NewRecorder(logger *zap.Logger) *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mandateidx_index_status",
			Help: "1 for the status of each managed index after the last run.",
		}, []string{"database", "collection", "index", "status"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mandateidx_index_duration_seconds",
			Help: "Time spent ensuring or verifying each index in the last run.",
		}, []string{"database", "collection", "index"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mandateidx_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mandateidx_last_run_success",
			Help: "1 if the last run finished without errors.",
		}),
	}
	mustRegister(logger, r.reg, "index status", r.status)
	mustRegister(logger, r.reg, "index duration", r.duration)
	mustRegister(logger, r.reg, "last run timestamp", r.lastRun)
	mustRegister(logger, r.reg, "last run success", r.success)
	return r
}

// mustRegister registers c on reg. A failure other than AlreadyRegisteredError
// is a programming error: it is fatal with a logger and panics without one.
func mustRegister(logger *zap.Logger, reg *prometheus.Registry, name string, c prometheus.Collector) {
	if err := reg.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return
		}
		if logger != nil {
			logger.Fatal("failed to register "+name, zap.Error(err))
		} else {
			panic("metrics: failed to register " + name + ": " + err.Error())
		}
	}
}

// ObserveIndex records the final status and duration of one index.
func (r *Recorder) ObserveIndex(database, collection, index, status string, d time.Duration) {
	for _, s := range Statuses {
		v := 0.0
		if s == status {
			v = 1
		}
		r.status.WithLabelValues(database, collection, index, s).Set(v)
	}
	r.duration.WithLabelValues(database, collection, index).Set(d.Seconds())
}

// Finish records the end of the run.
func (r *Recorder) Finish(at time.Time, ok bool) {
	r.lastRun.Set(float64(at.Unix()))
	if ok {
		r.success.Set(1)
	} else {
		r.success.Set(0)
	}
}

// Gatherer exposes the registry, mainly for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteTextfile atomically writes the metrics in text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
