package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counters for the request lifecycle and its side channels.
var (
	RequestsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roadside_requests_created_total",
		Help: "Service requests created.",
	})

	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roadside_request_transitions_total",
		Help: "Successful status transitions by target status.",
	}, []string{"to"})

	TransitionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roadside_request_transition_conflicts_total",
		Help: "Transition attempts rejected by a precondition.",
	})

	FeedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roadside_feed_events_total",
		Help: "Change-feed events dispatched to subscribers.",
	})

	PushesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roadside_pushes_sent_total",
		Help: "Push notifications accepted by the gateway.",
	})

	PushesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roadside_pushes_failed_total",
		Help: "Push notifications rejected by the gateway.",
	})
)

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
