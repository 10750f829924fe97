// Package metrics exposes chat server counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/proto"
)

const namespace = "linechat"

// knownVerbs bounds the verb label; anything else is reported as "other".
var knownVerbs = map[string]struct{}{
	proto.VerbLogin:  {},
	proto.VerbSay:    {},
	proto.VerbLook:   {},
	proto.VerbLogout: {},
}

// Metrics holds the collectors fed by core events.
type Metrics struct {
	registry *prometheus.Registry

	Connections     prometheus.Counter
	SessionsActive  prometheus.Gauge
	UsersOnline     prometheus.Gauge
	Commands        *prometheus.CounterVec
	RoomMessages    prometheus.Counter
	Deliveries      prometheus.Counter
	OutboundDropped prometheus.Counter
}

// New registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Sessions opened since start.",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions not yet logged out.",
		}),
		UsersOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "users_online",
			Help:      "Names currently registered in the chat room.",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Dispatched command lines by verb and outcome.",
		}, []string{"verb", "outcome"}),
		RoomMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_messages_total",
			Help:      "Chat messages broadcast.",
		}),
		Deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_message_deliveries_total",
			Help:      "Chat message copies queued to members.",
		}),
		OutboundDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_dropped_total",
			Help:      "Sessions closed because their outbound queue overflowed.",
		}),
	}

	m.registry.MustRegister(
		m.Connections,
		m.SessionsActive,
		m.UsersOnline,
		m.Commands,
		m.RoomMessages,
		m.Deliveries,
		m.OutboundDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe updates collectors from a core event. It is a core.Listener.
func (m *Metrics) Observe(ev core.Event) {
	switch ev.Kind {
	case core.EventSessionOpened:
		m.Connections.Inc()
		m.SessionsActive.Inc()
	case core.EventSessionClosed:
		m.SessionsActive.Dec()
	case core.EventUserJoined:
		m.UsersOnline.Inc()
	case core.EventUserLeft:
		m.UsersOnline.Dec()
	case core.EventRoomMessage:
		m.RoomMessages.Inc()
		m.Deliveries.Add(float64(ev.Recipients))
	case core.EventCommand:
		verb := ev.Verb
		if _, ok := knownVerbs[verb]; !ok {
			verb = "other"
		}
		m.Commands.WithLabelValues(verb, ev.Outcome).Inc()
	case core.EventOutboundDropped:
		m.OutboundDropped.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
