// internal/scpi/registry.go
package scpi

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Instrument is the capability surface every adapter exposes on top of a
// Session. Device adapters call only this plus the session's write/query/
// read/timeout operations; they never reach into the transport binding.
type Instrument interface {
	Connect(ctx context.Context) error
	Close() error
	Identify() (Identification, error)
}

// Factory builds a concrete instrument adapter for a probed address.
type Factory func(addr Address, opts Options, logger *zap.Logger) (Instrument, error)

type registration struct {
	name    string
	models  []string
	factory Factory
}

// Registry maps reported instrument models to adapter factories. Lookup
// walks registrations in the order they were added and the first claim
// wins; adapters with overlapping model lists should therefore register the
// more specific one first.
type Registry struct {
	mu      sync.RWMutex
	entries []registration
	logger  *zap.Logger
}

// NewRegistry creates an empty adapter registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger}
}

// Register adds an adapter factory with the list of model strings it
// accepts.
func (r *Registry) Register(name string, models []string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, registration{name: name, models: models, factory: factory})
	r.logger.Info("Instrument adapter registered",
		zap.String("adapter", name),
		zap.Strings("models", models),
	)
}

// Lookup returns the first registered factory claiming the model.
func (r *Registry) Lookup(model string) (Factory, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, entry := range r.entries {
		for _, m := range entry.models {
			if m == model {
				return entry.factory, entry.name, true
			}
		}
	}
	return nil, "", false
}

// Resolve opens a generic probe connection, identifies the instrument,
// closes the probe, and constructs the matching adapter against the same
// address. An unclaimed model is a driver gap, reported as a fatal
// configuration error and never retried.
func (r *Registry) Resolve(ctx context.Context, addr Address, opts Options) (Instrument, error) {
	probe := NewSession(addr, opts, r.logger)
	if err := probe.Connect(ctx); err != nil {
		return nil, err
	}
	ident := probe.Identification()
	if err := probe.Close(); err != nil {
		return nil, err
	}

	factory, name, ok := r.Lookup(ident.Model)
	if !ok {
		return nil, &ConfigError{Reason: fmt.Sprintf("instrument model %q not recognized", ident.Model)}
	}

	r.logger.Info("Instrument model resolved",
		zap.String("adapter", name),
		zap.String("model", ident.Model),
		zap.String("address", addr.String()),
	)
	return factory(addr, opts, r.logger)
}

// Adapters lists registered adapter names in registration order.
func (r *Registry) Adapters() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		names = append(names, entry.name)
	}
	return names
}
