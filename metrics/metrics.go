package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the roster service counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	RostersPublished       *prometheus.CounterVec
	RostersRetired         prometheus.Counter
	NotificationsDelivered *prometheus.CounterVec
	NotificationsFailed    *prometheus.CounterVec
	Confirmations          prometheus.Counter
	Declines               prometheus.Counter
	OutboxBatchesAbandoned prometheus.Counter
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RostersPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_published_total",
			Help: "Rosters published, by action (create or edit)",
		}, []string{"action"}),
		RostersRetired: factory.NewCounter(prometheus.CounterOpts{
			Name: "roster_retired_total",
			Help: "Rosters deleted by administrators",
		}),
		NotificationsDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_notifications_delivered_total",
			Help: "Notifications appended to the outbox, by category",
		}, []string{"category"}),
		NotificationsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_notifications_failed_total",
			Help: "Notification appends that failed, by category",
		}, []string{"category"}),
		Confirmations: factory.NewCounter(prometheus.CounterOpts{
			Name: "roster_confirmations_total",
			Help: "Confirm transitions",
		}),
		Declines: factory.NewCounter(prometheus.CounterOpts{
			Name: "roster_declines_total",
			Help: "Decline transitions",
		}),
		OutboxBatchesAbandoned: factory.NewCounter(prometheus.CounterOpts{
			Name: "roster_outbox_batches_abandoned_total",
			Help: "Pending fan-out batches dropped after the last delivery attempt",
		}),
	}
}

func (m *Metrics) IncPublished(action string) {
	if m == nil {
		return
	}
	m.RostersPublished.WithLabelValues(action).Inc()
}

func (m *Metrics) IncRetired() {
	if m == nil {
		return
	}
	m.RostersRetired.Inc()
}

func (m *Metrics) IncDelivered(category string) {
	if m == nil {
		return
	}
	m.NotificationsDelivered.WithLabelValues(category).Inc()
}

func (m *Metrics) IncFailed(category string) {
	if m == nil {
		return
	}
	m.NotificationsFailed.WithLabelValues(category).Inc()
}

func (m *Metrics) IncConfirmations() {
	if m == nil {
		return
	}
	m.Confirmations.Inc()
}

func (m *Metrics) IncDeclines() {
	if m == nil {
		return
	}
	m.Declines.Inc()
}

func (m *Metrics) IncAbandoned() {
	if m == nil {
		return
	}
	m.OutboxBatchesAbandoned.Inc()
}
