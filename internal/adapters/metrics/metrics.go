package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the provisioning service.
type Metrics struct {
	ProvisionsTotal       *prometheus.CounterVec
	ProvisionDuration     prometheus.Histogram
	LifecycleActionsTotal *prometheus.CounterVec
}

// New initializes and registers the metrics on the given registerer. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProvisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenantdock",
			Subsystem: "provisioner",
			Name:      "provisions_total",
			Help:      "Total number of tenant environment provisioning attempts by status.",
		}, []string{"status"}), // status: success, error
		ProvisionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tenantdock",
			Subsystem: "provisioner",
			Name:      "provision_duration_seconds",
			Help:      "Duration of tenant environment provisioning, dominated by image builds.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		LifecycleActionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenantdock",
			Subsystem: "lifecycle",
			Name:      "actions_total",
			Help:      "Total number of container lifecycle actions by action and status.",
		}, []string{"action", "status"}),
	}
}
