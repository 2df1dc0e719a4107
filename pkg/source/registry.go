package source

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/phasegen/phasegen/pkg/config"
	"github.com/phasegen/phasegen/pkg/errors"
	"github.com/phasegen/phasegen/pkg/logger"
)

// Factory creates a producer instance from the replay configuration.
// A factory is invoked once per worker, so every producer it returns is
// independently positioned in the stream.
type Factory func(cfg *config.ReplayConfig) (Producer, error)

// Registry maps source names to producer factories.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
	logger    *zap.Logger
}

var globalRegistry = NewRegistry()

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		logger:    logger.Get().With(zap.String("component", "source_registry")),
	}
}

// Register adds a producer factory under a name.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "source %s already registered", name)
	}
	r.factories[name] = factory
	r.logger.Debug("source registered", zap.String("name", name))
	return nil
}

// Create instantiates a producer for the configured source.
func (r *Registry) Create(cfg *config.ReplayConfig) (Producer, error) {
	r.mu.RLock()
	factory, exists := r.factories[cfg.Source]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrorTypeConfig, "source %s not found", cfg.Source)
	}
	producer, err := factory(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, "failed to create source")
	}
	return producer, nil
}

// List returns the registered source names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds a factory to the global registry.
func Register(name string, factory Factory) error {
	return globalRegistry.Register(name, factory)
}

// Create instantiates a producer from the global registry.
func Create(cfg *config.ReplayConfig) (Producer, error) {
	return globalRegistry.Create(cfg)
}

// List returns the names registered in the global registry.
func List() []string {
	return globalRegistry.List()
}

func init() {
	_ = Register("memory", newMemoryProducer)
	_ = Register("arrow", newArrowProducer)
}
