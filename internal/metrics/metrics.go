package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Classifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "egov_classifications_total",
			Help: "Complaint classification attempts by outcome",
		},
		[]string{"outcome"},
	)

	ChatTurns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "egov_chat_turns_total",
			Help: "Assistant chat turns by outcome",
		},
		[]string{"outcome"},
	)

	TicketsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "egov_tickets_submitted_total",
			Help: "Complaints accepted by the ticket backend",
		},
		[]string{"backend"},
	)

	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "egov_ai_request_duration_seconds",
			Help:    "Latency of calls to the AI backend",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)
)

var once sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			Classifications,
			ChatTurns,
			TicketsSubmitted,
			AIRequestDuration,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
