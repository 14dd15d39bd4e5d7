package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	provisioningTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_provisioning_total",
			Help: "User provisioning operations by outcome",
		},
		[]string{"op", "result"},
	)

	provisioningRollbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_provisioning_rollbacks_total",
			Help: "Compensating identity deletes after a failed profile write",
		},
		[]string{"result"},
	)

	pipelineMoves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_pipeline_moves_total",
			Help: "Pipeline stage transitions",
		},
		[]string{"to", "result"},
	)

	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_events_published_total",
			Help: "Domain events published to the broker",
		},
		[]string{"type", "result"},
	)

	emailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_emails_sent_total",
			Help: "Emails sent to leads",
		},
		[]string{"result"},
	)
)

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordProvisioning op: create / update / delete
func RecordProvisioning(op string, err error) { provisioningTotal.WithLabelValues(op, result(err)).Inc() }

func RecordRollback(err error) {
	r := "ok"
	if err != nil {
		r = "failed"
	}
	provisioningRollbacks.WithLabelValues(r).Inc()
}

func RecordPipelineMove(to string, err error) { pipelineMoves.WithLabelValues(to, result(err)).Inc() }

func RecordEvent(eventType string, err error) {
	eventsPublished.WithLabelValues(eventType, result(err)).Inc()
}

func RecordEmail(err error) { emailsSent.WithLabelValues(result(err)).Inc() }
