package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "withsecure"
	subsystem = "export"
)

var (
	Registry = prometheus.NewRegistry()

	OrganizationsProcessed prometheus.Counter
	DevicesExported        prometheus.Counter

	apiStatusCodes *prometheus.CounterVec
	exportRuns     *prometheus.CounterVec
	exportDuration prometheus.Histogram
)

// WriteTextfile dumps the registry in the node_exporter textfile collector format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}

func IncAPIStatusCode(endpoint string, code int) {
	apiStatusCodes.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
}

func ObserveExport(success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	exportRuns.WithLabelValues(result).Inc()
	exportDuration.Observe(duration.Seconds())
}

func init() {
	OrganizationsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "organizations_processed",
		Help:      "number of organizations whose devices have been fetched",
	})

	DevicesExported = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "devices_exported",
		Help:      "number of device rows written to CSV",
	})

	apiStatusCodes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "api_status_codes",
		Help:      "WithSecure API status codes per endpoint.",
	}, []string{"endpoint", "code"})

	exportRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "runs_total",
		Help:      "Export runs by result.",
	}, []string{"result"})

	exportDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "duration_seconds",
		Help:      "Wall clock duration of export runs.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	Registry.MustRegister(
		OrganizationsProcessed,
		DevicesExported,
		apiStatusCodes,
		exportRuns,
		exportDuration,
	)
}
