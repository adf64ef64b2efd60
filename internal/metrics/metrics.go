// Package metrics records application events to Prometheus and the Mongo event log.
package metrics

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"donation_bot/internal/logging"
)

// Recorder accepts named events. Recording never fails the caller.
type Recorder interface {
	Record(ctx context.Context, name string, value map[string]interface{})
}

// Sink is a single destination for events.
type Sink interface {
	Record(ctx context.Context, name string, value map[string]interface{}) error
}

// Prometheus counts events and the star amounts they carry.
type Prometheus struct {
	events   *prometheus.CounterVec
	stars    *prometheus.CounterVec
	webhooks *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "donation_bot_events_total",
				Help: "Application events by name.",
			},
			[]string{"event"},
		),
		stars: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "donation_bot_stars_total",
				Help: "Sum of star amounts carried by events.",
			},
			[]string{"event"},
		),
		webhooks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "donation_bot_webhook_requests_total",
				Help: "Webhook requests by result (accepted/rejected/failed).",
			},
			[]string{"result"},
		),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{p.events, p.stars, p.webhooks} {
			if err := reg.Register(c); err != nil {
				return nil, fmt.Errorf("register collector: %w", err)
			}
		}
	}

	return p, nil
}

// Record implements Sink.
func (p *Prometheus) Record(_ context.Context, name string, value map[string]interface{}) error {
	name = norm(name)
	p.events.WithLabelValues(name).Inc()
	if amount, ok := numeric(value["value"]); ok && amount > 0 {
		p.stars.WithLabelValues(name).Add(amount)
	}
	return nil
}

// ObserveWebhook counts one webhook request.
func (p *Prometheus) ObserveWebhook(result string) {
	if p == nil {
		return
	}
	p.webhooks.WithLabelValues(norm(result)).Inc()
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func numeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// Multi fans an event out to every sink, logging sink failures at warn.
type Multi struct {
	sinks  []Sink
	logger *logrus.Entry
}

// NewMulti builds a Multi over the non-nil sinks.
func NewMulti(logger *logrus.Entry, sinks ...Sink) *Multi {
	if logger == nil {
		logger = logging.Logger()
	}

	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}

	return &Multi{sinks: kept, logger: logger}
}

// Record implements Recorder.
func (m *Multi) Record(ctx context.Context, name string, value map[string]interface{}) {
	if m == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for _, s := range m.sinks {
		if err := s.Record(ctx, name, value); err != nil {
			m.logger.WithFields(logging.Fields{
				"event": "metric_record_failed",
				"name":  name,
				"sink":  fmt.Sprintf("%T", s),
			}).WithError(err).Warn("failed to record event")
		}
	}
}

// Discard drops every event.
type Discard struct{}

// Record implements Recorder.
func (Discard) Record(context.Context, string, map[string]interface{}) {}
