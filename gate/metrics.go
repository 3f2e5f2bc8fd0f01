package gate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the Prometheus instruments for auth outcomes.
type metrics struct {
	requests *prometheus.CounterVec
	issued   prometheus.Counter
	lookups  *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cookiegate_requests_total",
			Help: "Requests processed by the auth gate, by outcome and denial reason.",
		}, []string{"outcome", "reason"}),
		issued: factory.NewCounter(prometheus.CounterOpts{
			Name: "cookiegate_tokens_issued_total",
			Help: "Tokens minted from verified sealed credentials.",
		}),
		lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cookiegate_token_lookups_total",
			Help: "Token store lookups, by status.",
		}, []string{"status"}),
	}
}

func (m *metrics) recordAuthenticated() {
	if m == nil {
		return
	}
	m.requests.WithLabelValues("authenticated", "").Inc()
}

func (m *metrics) recordDenied(reason denyReason) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues("denied", string(reason)).Inc()
}

func (m *metrics) recordPassThrough() {
	if m == nil {
		return
	}
	m.requests.WithLabelValues("pass_through", "").Inc()
}

func (m *metrics) recordIssued() {
	if m == nil {
		return
	}
	m.issued.Inc()
}

func (m *metrics) recordLookup(status string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(status).Inc()
}
