// Package metrics exposes the operational counters of the geyser server in
// the Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "geyser"

// Labels
const (
	LabelKind    = "kind"
	LabelOutcome = "outcome"
	LabelCode    = "code"
)

// Collector receives the reportable conditions of the server
type Collector interface {
	QueueLength(n int)
	QueueOutcome(outcome string)
	ConnectionOpened()
	ConnectionClosed(code string)
	ConnectionRejected()
	SubscriptionUpdated()
	MessageSent(kind string, bytes int)
	DeliveryRetried()
	DeliveryFailed()
	EncodingFailed(kind string)
	Overloaded()
	ProtocolError()
	StreamsInFlight(n int64)
	HandlerPanicked()
}

// Prometheus is a Collector backed by a private Prometheus registry
type Prometheus struct {
	registry *prometheus.Registry

	queueLength     prometheus.Gauge
	queueOutcomes   *prometheus.CounterVec
	connections     prometheus.Gauge
	closed          *prometheus.CounterVec
	rejected        prometheus.Counter
	subscriptions   prometheus.Counter
	messagesSent    *prometheus.CounterVec
	bytesSent       *prometheus.CounterVec
	retries         prometheus.Counter
	failures        prometheus.Counter
	encodingErrors  *prometheus.CounterVec
	overloads       prometheus.Counter
	protocolErrors  prometheus.Counter
	streamsInFlight prometheus.Gauge
	httpPanics      prometheus.Counter
}

var _ Collector = (*Prometheus)(nil)

// NewPrometheus creates the collectors and registers them, together with the
// Go runtime and process collectors, on a new registry
func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	factory := registerer{registry}

	p := &Prometheus{
		registry: registry,

		queueLength: factory.gauge(prometheus.GaugeOpts{
			Name: "queue_length",
			Help: "the number of events waiting in the ingest queue",
		}),
		queueOutcomes: factory.counterVec(prometheus.CounterOpts{
			Name: "queue_publish_total",
			Help: "the number of events published into the ingest queue, by outcome",
		}, []string{LabelOutcome}),
		connections: factory.gauge(prometheus.GaugeOpts{
			Name: "connections",
			Help: "the number of open subscriber connections",
		}),
		closed: factory.counterVec(prometheus.CounterOpts{
			Name: "connections_closed_total",
			Help: "the number of closed subscriber connections, by close code",
		}, []string{LabelCode}),
		rejected: factory.counter(prometheus.CounterOpts{
			Name: "connections_rejected_total",
			Help: "the number of connections refused because of the connection limit",
		}),
		subscriptions: factory.counter(prometheus.CounterOpts{
			Name: "subscription_updates_total",
			Help: "the number of filter sets received from subscribers",
		}),
		messagesSent: factory.counterVec(prometheus.CounterOpts{
			Name: "messages_sent_total",
			Help: "the number of messages delivered to subscribers",
		}, []string{LabelKind}),
		bytesSent: factory.counterVec(prometheus.CounterOpts{
			Name: "bytes_sent_total",
			Help: "the number of framed bytes delivered to subscribers",
		}, []string{LabelKind}),
		retries: factory.counter(prometheus.CounterOpts{
			Name: "delivery_retries_total",
			Help: "the number of delivery attempts repeated on a fresh stream",
		}),
		failures: factory.counter(prometheus.CounterOpts{
			Name: "delivery_failures_total",
			Help: "the number of messages given up after all retries",
		}),
		encodingErrors: factory.counterVec(prometheus.CounterOpts{
			Name: "encoding_failures_total",
			Help: "the number of events that could not be encoded, by kind",
		}, []string{LabelKind}),
		overloads: factory.counter(prometheus.CounterOpts{
			Name: "overloaded_total",
			Help: "the number of connections dropped for exceeding their stream budget",
		}),
		protocolErrors: factory.counter(prometheus.CounterOpts{
			Name: "protocol_errors_total",
			Help: "the number of connections dropped for malformed client messages",
		}),
		streamsInFlight: factory.gauge(prometheus.GaugeOpts{
			Name: "streams_in_flight",
			Help: "the number of open delivery streams of all connections",
		}),
		httpPanics: factory.counter(prometheus.CounterOpts{
			Name: "http_panics_total",
			Help: "the number of operational endpoint requests that panicked",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// Handler returns the HTTP handler serving the registry
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry returns the underlying registry
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prometheus) QueueLength(n int) {
	p.queueLength.Set(float64(n))
}

func (p *Prometheus) QueueOutcome(outcome string) {
	p.queueOutcomes.With(prometheus.Labels{LabelOutcome: outcome}).Inc()
}

func (p *Prometheus) ConnectionOpened() {
	p.connections.Inc()
}

func (p *Prometheus) ConnectionClosed(code string) {
	p.connections.Dec()
	p.closed.With(prometheus.Labels{LabelCode: code}).Inc()
}

func (p *Prometheus) ConnectionRejected() {
	p.rejected.Inc()
}

func (p *Prometheus) SubscriptionUpdated() {
	p.subscriptions.Inc()
}

func (p *Prometheus) MessageSent(kind string, bytes int) {
	p.messagesSent.With(prometheus.Labels{LabelKind: kind}).Inc()
	p.bytesSent.With(prometheus.Labels{LabelKind: kind}).Add(float64(bytes))
}

func (p *Prometheus) DeliveryRetried() {
	p.retries.Inc()
}

func (p *Prometheus) DeliveryFailed() {
	p.failures.Inc()
}

func (p *Prometheus) EncodingFailed(kind string) {
	p.encodingErrors.With(prometheus.Labels{LabelKind: kind}).Inc()
}

func (p *Prometheus) Overloaded() {
	p.overloads.Inc()
}

func (p *Prometheus) ProtocolError() {
	p.protocolErrors.Inc()
}

func (p *Prometheus) StreamsInFlight(n int64) {
	p.streamsInFlight.Set(float64(n))
}

func (p *Prometheus) HandlerPanicked() {
	p.httpPanics.Inc()
}
