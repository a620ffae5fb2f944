package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "snerberd"

// PrometheusRecorder exports counters through a Prometheus registry.
type PrometheusRecorder struct {
	recordsCreated  *prometheus.CounterVec
	recordsUpdated  *prometheus.CounterVec
	recordsDeleted  *prometheus.CounterVec
	ownershipDenied *prometheus.CounterVec
	authFailures    *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them on reg.
func NewPrometheus(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		recordsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_created_total",
			Help:      "Records created, by resource kind.",
		}, []string{"kind"}),
		recordsUpdated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_updated_total",
			Help:      "Records updated, by resource kind.",
		}, []string{"kind"}),
		recordsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_deleted_total",
			Help:      "Records deleted, by resource kind.",
		}, []string{"kind"}),
		ownershipDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_ownership_denied_total",
			Help:      "Writes rejected because the requester does not own the record.",
		}, []string{"kind"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected bearer authentications, by reason.",
		}, []string{"reason"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected with 429, by bucket.",
		}, []string{"bucket"}),
	}

	for _, c := range []prometheus.Collector{
		r.recordsCreated,
		r.recordsUpdated,
		r.recordsDeleted,
		r.ownershipDenied,
		r.authFailures,
		r.rateLimited,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// IncRecordCreated increments the created counter for kind.
func (r *PrometheusRecorder) IncRecordCreated(kind string) {
	r.recordsCreated.WithLabelValues(kind).Inc()
}

// IncRecordUpdated increments the updated counter for kind.
func (r *PrometheusRecorder) IncRecordUpdated(kind string) {
	r.recordsUpdated.WithLabelValues(kind).Inc()
}

// IncRecordDeleted increments the deleted counter for kind.
func (r *PrometheusRecorder) IncRecordDeleted(kind string) {
	r.recordsDeleted.WithLabelValues(kind).Inc()
}

// IncOwnershipDenied increments the ownership denial counter for kind.
func (r *PrometheusRecorder) IncOwnershipDenied(kind string) {
	r.ownershipDenied.WithLabelValues(kind).Inc()
}

// IncAuthFailure increments the auth failure counter for reason.
func (r *PrometheusRecorder) IncAuthFailure(reason string) {
	r.authFailures.WithLabelValues(reason).Inc()
}

func (r *PrometheusRecorder) IncRateLimited(bucket string) {
	r.rateLimited.WithLabelValues(bucket).Inc()
}
