package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Counter is a named outcome counter backed by the global meter provider.
// Instruments resolve lazily so counters declared at package level pick up
// the provider installed by Init.
type Counter struct {
	name        string
	description string

	once sync.Once
	c    metric.Int64Counter
}

// NewCounter declares a counter.
func NewCounter(name, description string) *Counter {
	return &Counter{name: name, description: description}
}

// Inc adds one to the counter with the given outcome label.
func (c *Counter) Inc(ctx context.Context, outcome string) {
	c.once.Do(func() {
		counter, err := Meter().Int64Counter(c.name, metric.WithDescription(c.description))
		if err == nil {
			c.c = counter
		}
	})
	if c.c == nil {
		return
	}
	c.c.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
