// Package metrics регистрирует счётчики Prometheus сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookEvents считает обработанные события Stripe по типу и исходу.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voicebot",
		Subsystem: "billing",
		Name:      "webhook_events_total",
		Help:      "Stripe webhook events by type and reconciliation outcome.",
	}, []string{"type", "outcome"})

	// PaymentFailures считает неуспешные списания.
	PaymentFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voicebot",
		Subsystem: "billing",
		Name:      "payment_failures_total",
		Help:      "invoice.payment_failed events received.",
	})

	// MinutesRecorded суммирует списанные минуты разговоров.
	MinutesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voicebot",
		Subsystem: "usage",
		Name:      "minutes_recorded_total",
		Help:      "Conversation minutes charged against user credits.",
	})

	// EmbedSessions считает попытки открыть сессию встраивания по результату.
	EmbedSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voicebot",
		Subsystem: "embed",
		Name:      "sessions_total",
		Help:      "Embed session issuance attempts by result.",
	}, []string{"result"})
)
