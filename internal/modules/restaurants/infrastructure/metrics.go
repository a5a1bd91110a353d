package infrastructure

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects request pipeline counters. A nil *Metrics records nothing.
type Metrics struct {
	requests  *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	replays   *prometheus.CounterVec
	redirects prometheus.Counter
}

// NewMetrics registers the pipeline collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviews_client_requests_total",
			Help: "API requests sent, by operation and status class.",
		}, []string{"operation", "status"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviews_client_token_refresh_total",
			Help: "Silent token refreshes awaited, by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		replays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviews_client_replays_total",
			Help: "Requests replayed after a 401, by final status class.",
		}, []string{"status"}),
		redirects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reviews_client_signin_redirects_total",
			Help: "Interactive sign-in redirects initiated after a failed refresh.",
		}),
	}
	reg.MustRegister(m.requests, m.refreshes, m.replays, m.redirects)
	return m
}

func (m *Metrics) recordRequest(operation string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, statusClass(status)).Inc()
}

func (m *Metrics) recordRefresh(trigger string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.refreshes.WithLabelValues(trigger, outcome).Inc()
}

// recordRefreshAbandoned counts a caller that stopped waiting on a refresh still in flight.
func (m *Metrics) recordRefreshAbandoned(trigger string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(trigger, "abandoned").Inc()
}

func (m *Metrics) recordReplay(status int) {
	if m == nil {
		return
	}
	m.replays.WithLabelValues(statusClass(status)).Inc()
}

func (m *Metrics) recordRedirect() {
	if m == nil {
		return
	}
	m.redirects.Inc()
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
