package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	leadsCaptured = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_leads_captured_total",
			Help: "Total number of leads captured through the public form",
		},
		[]string{"source"},
	)

	webhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_webhooks_received_total",
			Help: "Total number of webhooks received",
		},
		[]string{"provider", "result"},
	)

	paymentsSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_payments_synced_total",
			Help: "Total number of Asaas payments upserted",
		},
		[]string{"status"},
	)

	campaignEmails = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_campaign_emails_total",
			Help: "Total number of campaign emails processed",
		},
		[]string{"result"},
	)

	rateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_rate_limited_total",
			Help: "Total number of requests denied by the rate limiter",
		},
		[]string{"action"},
	)

	integrationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_errors_total",
			Help: "Total number of integration errors",
		},
		[]string{"service"},
	)
)

func RecordLeadCaptured(source string) {
	if source == "" {
		source = "unknown"
	}
	leadsCaptured.WithLabelValues(source).Inc()
}

func RecordWebhook(provider, result string) {
	webhooksReceived.WithLabelValues(provider, result).Inc()
}

func RecordPaymentSynced(status string) {
	paymentsSynced.WithLabelValues(status).Inc()
}

func RecordCampaignEmail(sent bool) {
	result := "sent"
	if !sent {
		result = "failed"
	}
	campaignEmails.WithLabelValues(result).Inc()
}

func RecordRateLimited(action string) {
	rateLimited.WithLabelValues(action).Inc()
}

func RecordIntegrationError(service string) {
	integrationErrors.WithLabelValues(service).Inc()
}
