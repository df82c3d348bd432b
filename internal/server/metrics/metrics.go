// Package metrics holds the server's Prometheus collectors and the HTTP
// router exposing them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "profilekeeper"

type Metrics struct {
	Joins          prometheus.Counter
	AuthFailures   prometheus.Counter
	Pushes         *prometheus.CounterVec
	Deletes        *prometheus.CounterVec
	Broadcasts     prometheus.Counter
	BroadcastDrops prometheus.Counter
	Subscribers    prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Joins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "joins_total",
			Help:      "Accounts created.",
		}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Calls rejected for a missing or unknown auth token.",
		}),
		Pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pushes_total",
			Help:      "Records accepted by PushRecord.",
		}, []string{"type"}),
		Deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deletes_total",
			Help:      "Records removed by DeleteRecord.",
		}, []string{"type"}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Records delivered to subscriptions.",
		}),
		BroadcastDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_drops_total",
			Help:      "Records not delivered because a subscription queue was full.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Open Subscribe streams.",
		}),
	}

	reg.MustRegister(m.Joins, m.AuthFailures, m.Pushes, m.Deletes, m.Broadcasts, m.BroadcastDrops, m.Subscribers)
	return m
}
