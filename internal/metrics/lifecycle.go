package metrics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/grievance-management/internal/core/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Subscriber is the side of the event bus the collectors attach to.
type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

// Lifecycle counts committed grievance transitions.
type Lifecycle struct {
	transitions *prometheus.CounterVec
	assigned    prometheus.Counter
	logger      *slog.Logger
}

// NewLifecycle registers the grievance collectors on reg. A nil reg uses
// the default registry.
func NewLifecycle(reg prometheus.Registerer, logger *slog.Logger) *Lifecycle {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Lifecycle{
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grievance_transitions_total",
				Help: "Committed grievance lifecycle transitions by event type and resulting status.",
			},
			[]string{"event", "status"},
		),
		assigned: factory.NewCounter(prometheus.CounterOpts{
			Name: "grievance_assignments_total",
			Help: "Grievances handed to employees by assignment batches.",
		}),
		logger: logger,
	}
}

// Attach subscribes the collectors to every grievance event.
func (l *Lifecycle) Attach(bus Subscriber) {
	for _, eventType := range events.GrievanceEventTypes {
		bus.Subscribe(eventType, l.Handle)
	}
}

func (l *Lifecycle) Handle(_ context.Context, event events.Event) error {
	switch e := event.(type) {
	case *events.GrievanceEvent:
		l.transitions.WithLabelValues(e.EventType(), e.Status).Inc()
	case *events.GrievancesAssignedEvent:
		l.assigned.Add(float64(e.Count()))
	default:
		return fmt.Errorf("unexpected event %T for %s", event, event.EventType())
	}
	l.logger.Debug("grievance transition recorded", "event_type", event.EventType(), "event_id", event.EventID())
	return nil
}
