package metrics

import (
	"context"
	"net/http"

	registry "github.com/goliatone/go-voter-registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "registry"

// Sink counts lifecycle activity events in prometheus
type Sink struct {
	registry    *prometheus.Registry
	events      *prometheus.CounterVec
	transitions *prometheus.CounterVec
	logins      *prometheus.CounterVec
}

var _ registry.ActivitySink = (*Sink)(nil)

// NewSink registers the registry counters on a dedicated prometheus registry
// that also carries the go and process collectors
func NewSink() *Sink {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Sink{
		registry: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_events_total",
			Help:      "Lifecycle activity events by type.",
		}, []string{"event"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_status_transitions_total",
			Help:      "User status transitions by source and target status.",
		}, []string{"from", "to"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(s.events, s.transitions, s.logins)
	return s
}

// Record implements registry.ActivitySink
func (s *Sink) Record(_ context.Context, event registry.ActivityEvent) error {
	s.events.WithLabelValues(string(event.EventType)).Inc()

	switch event.EventType {
	case registry.ActivityEventUserStatusChanged:
		s.transitions.WithLabelValues(string(event.FromStatus), string(event.ToStatus)).Inc()
	case registry.ActivityEventLoginSuccess:
		s.logins.WithLabelValues("success").Inc()
	case registry.ActivityEventLoginFailure:
		s.logins.WithLabelValues("failure").Inc()
	}

	return nil
}

// Gatherer exposes the underlying registry, mostly for tests
func (s *Sink) Gatherer() prometheus.Gatherer {
	return s.registry
}

// Handler serves the metrics in the prometheus text format
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
