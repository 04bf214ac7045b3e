package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"nxqueue/internal/config"
	"nxqueue/internal/docstore"
)

// PersisterFactory builds the persister of a queue.
type PersisterFactory func(queue string, contentType ContentType) (Persister, error)

// ProcessorFactory builds the processor of a queue.
type ProcessorFactory func(queue string, contentType ContentType) (Processor, error)

// Factories names the persister and processor kinds queue descriptors may use.
type Factories struct {
	Persisters map[string]PersisterFactory
	Processors map[string]ProcessorFactory
}

// DefaultFactories provides the "document" and "memory" persisters and the
// "log" and "noop" processors.
func DefaultFactories(store *docstore.Store, logger *slog.Logger) Factories {
	return Factories{
		Persisters: map[string]PersisterFactory{
			"document": func(queue string, ct ContentType) (Persister, error) {
				return NewDocumentPersister(store, queue, ct)
			},
			"memory": func(queue string, ct ContentType) (Persister, error) {
				return NewMemoryPersister(queue, ct)
			},
		},
		Processors: map[string]ProcessorFactory{
			"log": func(string, ContentType) (Processor, error) {
				return NewLogProcessor(logger), nil
			},
			"noop": func(string, ContentType) (Processor, error) {
				return NoopProcessor{}, nil
			},
		},
	}
}

// Bootstrap registers every queue descriptor and creates its storage.
func Bootstrap(ctx context.Context, registry *Registry, queues []config.Queue, factories Factories) error {
	for _, desc := range queues {
		ct, err := LookupContentType(desc.ContentType)
		if err != nil {
			return fmt.Errorf("queue %s: %w", desc.Name, err)
		}
		newPersister, ok := factories.Persisters[desc.Persister]
		if !ok {
			return fmt.Errorf("%w: queue %s: unknown persister %q (known: %s)",
				ErrInvalidRegistration, desc.Name, desc.Persister, strings.Join(keys(factories.Persisters), ", "))
		}
		newProcessor, ok := factories.Processors[desc.Processor]
		if !ok {
			return fmt.Errorf("%w: queue %s: unknown processor %q (known: %s)",
				ErrInvalidRegistration, desc.Name, desc.Processor, strings.Join(keys(factories.Processors), ", "))
		}
		persister, err := newPersister(desc.Name, ct)
		if err != nil {
			return fmt.Errorf("queue %s: persister: %w", desc.Name, err)
		}
		processor, err := newProcessor(desc.Name, ct)
		if err != nil {
			return fmt.Errorf("queue %s: processor: %w", desc.Name, err)
		}
		if err := persister.CreateIfNotExist(ctx); err != nil {
			return err
		}
		if err := registry.Register(desc.Name, ct, persister, processor, WithMaxExecutions(desc.MaxExecutions)); err != nil {
			return err
		}
	}
	return nil
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
