// Package metrics описывает прикладные метрики Prometheus.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics — счётчики проверок сессий и событий аутентификации.
// Методы безопасно вызывать на nil.
type Metrics struct {
	sessionChecks *prometheus.CounterVec
	authEvents    *prometheus.CounterVec
}

// New создаёт и регистрирует метрики в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "session_checks_total",
			Help:      "Session checks by outcome (ok or rejection reason).",
		}, []string{"outcome"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "auth_events_total",
			Help:      "Credential lifecycle events by result.",
		}, []string{"event", "result"}),
	}

	reg.MustRegister(m.sessionChecks, m.authEvents)

	return m
}

// SessionCheck учитывает исход проверки сессии.
func (m *Metrics) SessionCheck(outcome string) {
	if m == nil {
		return
	}
	m.sessionChecks.WithLabelValues(outcome).Inc()
}

// AuthEvent учитывает событие (login, register, reset…) и его результат.
func (m *Metrics) AuthEvent(event, result string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(event, result).Inc()
}
