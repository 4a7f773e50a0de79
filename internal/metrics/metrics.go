// Package metrics exposes forum activity counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	LoginSuccess = "success"
	LoginFailure = "failure"

	KindPost  = "post"
	KindReply = "reply"
)

type Metrics struct {
	registry *prometheus.Registry

	Signups  prometheus.Counter
	Logins   *prometheus.CounterVec
	Messages *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Signups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forum_signups_total",
			Help: "Users created through signup.",
		}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forum_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forum_messages_created_total",
			Help: "Messages created, by kind (post or reply).",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		m.Signups,
		m.Logins,
		m.Messages,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
