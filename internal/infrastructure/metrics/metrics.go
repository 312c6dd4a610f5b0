package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "actorflow"

// Registry holds every actorflow collector.
var Registry = prometheus.NewRegistry()

// Channel metrics keyed by channel kind (bounded, unbounded).
var (
	channelSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "channel_sent_total",
		Help:      "Envelopes enqueued on actor channels.",
	}, []string{"kind"})
	channelReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "channel_received_total",
		Help:      "Envelopes dequeued from actor channels.",
	}, []string{"kind"})
	channelDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "channel_dropped_total",
		Help:      "Queued envelopes discarded because the consumer went away.",
	}, []string{"kind"})
)

// Actor metrics keyed by actor name.
var (
	actorCycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actor_cycles_total",
		Help:      "Completed read-update-write cycles.",
	}, []string{"actor"})
	clientErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_errors_total",
		Help:      "Recoverable client errors by stage (read, update, write).",
	}, []string{"actor", "stage"})
	actorsRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "actors_running",
		Help:      "Actor tasks currently running.",
	})
	transceiverFrames = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transceiver_frames_total",
		Help:      "Frames moved by network transceivers.",
	}, []string{"direction"})
)

func init() {
	Registry.MustRegister(
		channelSent,
		channelReceived,
		channelDropped,
		actorCycles,
		clientErrors,
		actorsRunning,
		transceiverFrames,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves Registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// Channel helpers
func ChannelSent(kind string, n int64)     { channelSent.WithLabelValues(kind).Add(float64(n)) }
func ChannelReceived(kind string, n int64) { channelReceived.WithLabelValues(kind).Add(float64(n)) }
func ChannelDropped(kind string, n int64)  { channelDropped.WithLabelValues(kind).Add(float64(n)) }

// Actor helpers
func IncActorCycles(actor string)           { actorCycles.WithLabelValues(actor).Inc() }
func IncClientErrors(actor, stage string)   { clientErrors.WithLabelValues(actor, stage).Inc() }
func ActorStarted()                         { actorsRunning.Inc() }
func ActorStopped()                         { actorsRunning.Dec() }
func IncTransceiverFrames(direction string) { transceiverFrames.WithLabelValues(direction).Inc() }
