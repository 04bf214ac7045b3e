package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"nxqueue/internal/logging"
)

// Processor executes the work described by a dispatched item.
type Processor interface {
	Process(ctx context.Context, item *Item) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, item *Item) error

func (f ProcessorFunc) Process(ctx context.Context, item *Item) error { return f(ctx, item) }

func (f ProcessorFunc) isNil() bool { return f == nil }

// LogProcessor records each dispatched item in the log and succeeds.
type LogProcessor struct {
	logger *slog.Logger
}

// NewLogProcessor returns a processor that logs through logger.
func NewLogProcessor(logger *slog.Logger) *LogProcessor {
	return &LogProcessor{logger: logging.NewComponentLogger(logger, "processor")}
}

func (p *LogProcessor) isNil() bool { return p == nil }

func (p *LogProcessor) Process(ctx context.Context, item *Item) error {
	attrs := []logging.Attr{
		logging.Owner(item.Owner),
		logging.Int64("execution_count", item.ExecutionCount),
	}
	switch v := item.Content.(type) {
	case []byte:
		attrs = append(attrs, logging.Int("content_bytes", len(v)))
	case json.RawMessage:
		attrs = append(attrs, logging.String("content_payload", string(v)))
	default:
		attrs = append(attrs, logging.Any("content_payload", v))
	}
	logging.WithContext(ctx, p.logger).Info("content processed", logging.Args(attrs...)...)
	return nil
}

// NoopProcessor accepts every item without doing anything.
type NoopProcessor struct{}

func (NoopProcessor) Process(context.Context, *Item) error { return nil }
