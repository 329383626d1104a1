package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RoomsCreated     prometheus.Counter
	RoomsReclaimed   prometheus.Counter
	ActiveRooms      prometheus.Gauge
	ConnectedClients prometheus.Gauge
	EventsProcessed  *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// main; tests use a fresh registry so parallel packages never collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RoomsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "codepair_rooms_created_total",
			Help: "Rooms allocated by the registry.",
		}),
		RoomsReclaimed: factory.NewCounter(prometheus.CounterOpts{
			Name: "codepair_rooms_reclaimed_total",
			Help: "Empty rooms deleted after the grace window.",
		}),
		ActiveRooms: factory.NewGauge(prometheus.GaugeOpts{
			Name: "codepair_rooms_active",
			Help: "Rooms currently held by the registry.",
		}),
		ConnectedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "codepair_clients_connected",
			Help: "Live websocket connections.",
		}),
		EventsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "codepair_events_processed_total",
			Help: "Protocol events handled, by event type.",
		}, []string{"type"}),
	}
}

// Handler exposes the default registry at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
