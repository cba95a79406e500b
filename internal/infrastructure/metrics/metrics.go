package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/valve-bridge/internal/bridge"
	"github.com/nerrad567/valve-bridge/internal/protocol"
	"github.com/nerrad567/valve-bridge/internal/transport"
)

const namespace = "valvebridge"

// notificationRaw labels forwarded device text, which is unbounded.
const notificationRaw = "raw"

// Metrics holds the bridge collectors.
type Metrics struct {
	registry *prometheus.Registry

	connectionsTotal  *prometheus.CounterVec // By role
	connectionsActive *prometheus.GaugeVec   // By role
	replacementsTotal *prometheus.CounterVec // By role
	messagesTotal     *prometheus.CounterVec // By role and kind
	notificationsSent *prometheus.CounterVec // By notification
	valvesAssigned    prometheus.Counter
	lastValveID       prometheus.Gauge
}

var _ bridge.Observer = (*Metrics)(nil)

// New creates and registers the collectors. valveCount, if non-nil, backs
// the valves_registered gauge.
func New(valveCount func() int) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		connectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Connections accepted into a slot",
		}, []string{"role"}),

		connectionsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Whether the slot of each role is occupied (0 or 1)",
		}, []string{"role"}),

		replacementsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_replacements_total",
			Help:      "Connections closed because a newer one took their slot",
		}, []string{"role"}),

		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Messages received from the active connections",
		}, []string{"role", "kind"}),

		notificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_notifications_total",
			Help:      "Notifications written to the client",
		}, []string{"notification"}),

		valvesAssigned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "valves_assigned_total",
			Help:      "Valve ids assigned since start",
		}),

		lastValveID: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_valve_id",
			Help:      "Most recently assigned valve id",
		}),
	}

	reg.MustRegister(
		m.connectionsTotal,
		m.connectionsActive,
		m.replacementsTotal,
		m.messagesTotal,
		m.notificationsSent,
		m.valvesAssigned,
		m.lastValveID,
	)

	if valveCount != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "valves_registered",
			Help:      "Valves in the registry",
		}, func() float64 { return float64(valveCount()) }))
	}

	// Expose both roles from the start so dashboards see zeros.
	for _, role := range []transport.Role{transport.RoleDevice, transport.RoleClient} {
		m.connectionsActive.WithLabelValues(role.String()).Set(0)
	}

	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// ConnectionOpened implements bridge.Observer.
func (m *Metrics) ConnectionOpened(role transport.Role, _ string) {
	m.connectionsTotal.WithLabelValues(role.String()).Inc()
	m.connectionsActive.WithLabelValues(role.String()).Set(1)
}

// ConnectionClosed implements bridge.Observer.
func (m *Metrics) ConnectionClosed(role transport.Role, _ string) {
	m.connectionsActive.WithLabelValues(role.String()).Set(0)
}

// ConnectionReplaced implements bridge.Observer.
func (m *Metrics) ConnectionReplaced(role transport.Role) {
	m.replacementsTotal.WithLabelValues(role.String()).Inc()
}

// MessageReceived implements bridge.Observer.
func (m *Metrics) MessageReceived(role transport.Role, kind protocol.Kind) {
	m.messagesTotal.WithLabelValues(role.String(), kind.String()).Inc()
}

// ValveAssigned implements bridge.Observer.
func (m *Metrics) ValveAssigned(id int) {
	m.valvesAssigned.Inc()
	m.lastValveID.Set(float64(id))
}

// NotificationSent implements bridge.Observer.
func (m *Metrics) NotificationSent(text string) {
	m.notificationsSent.WithLabelValues(notificationLabel(text)).Inc()
}

func notificationLabel(text string) string {
	switch text {
	case bridge.NotifyHello, bridge.NotifyBye, bridge.NotifyBeep:
		return text
	default:
		return notificationRaw
	}
}
