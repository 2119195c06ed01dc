package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg             *prometheus.Registry
	OrdersCreated   prometheus.Counter
	PurchaseInvalid prometheus.Counter
	WebhookEvents   *prometheus.CounterVec
	WebhookRejected prometheus.Counter
	WebhookFailed   prometheus.Counter
	MailFailures    prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{Name: "tickets_orders_created_total"})
	purchaseInvalid := prometheus.NewCounter(prometheus.CounterOpts{Name: "tickets_purchase_rejected_total"})
	webhookEvents := prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tickets_webhook_events_total"},
		[]string{"outcome"},
	)
	webhookRejected := prometheus.NewCounter(prometheus.CounterOpts{Name: "tickets_webhook_rejected_total"})
	webhookFailed := prometheus.NewCounter(prometheus.CounterOpts{Name: "tickets_webhook_failed_total"})
	mailFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "tickets_mail_failures_total"})

	r.MustRegister(
		ordersCreated, purchaseInvalid, webhookEvents, webhookRejected, webhookFailed, mailFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{
		reg:             r,
		OrdersCreated:   ordersCreated,
		PurchaseInvalid: purchaseInvalid,
		WebhookEvents:   webhookEvents,
		WebhookRejected: webhookRejected,
		WebhookFailed:   webhookFailed,
		MailFailures:    mailFailures,
	}
}

// MailFailed matches mail.WithOnError.
func (r *Registry) MailFailed(error) { r.MailFailures.Inc() }

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
