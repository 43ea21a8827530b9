package agent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/inkwell/blogmind/internal/worker"
	"github.com/inkwell/blogmind/pkg/logging"
)

// DefaultTopic is used when a generation run is started without a topic
const DefaultTopic = "Trending AI News"

// Generator starts a background generation run
type Generator interface {
	Generate(ctx context.Context, topic string) error
}

// Launcher starts generation runs on the worker
type Launcher struct {
	generator Generator
	logger    *zap.Logger
}

// NewLauncher creates a launcher
func NewLauncher(g Generator) *Launcher {
	return &Launcher{generator: g, logger: logging.WithComponent("agent-launcher")}
}

// Trigger asks the worker to write a post about topic and returns the topic
// actually requested. The worker publishes the post itself when done.
func (l *Launcher) Trigger(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = DefaultTopic
	}

	l.logger.Info("Triggering generation", zap.String("topic", topic))
	if err := l.generator.Generate(ctx, topic); err != nil {
		l.logger.Error("Generation trigger failed", zap.String("topic", topic), zap.Error(err))
		return topic, worker.Classify(err)
	}
	return topic, nil
}
