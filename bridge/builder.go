package bridge

import (
	"log/slog"

	"github.com/sarchlab/cosim/hooking"
	"github.com/sarchlab/cosim/idgen"
	"github.com/sarchlab/cosim/registry"
)

// Builder can build bridges.
type Builder struct {
	registry *registry.Registry
	logger   *slog.Logger
	hooks    []hooking.Hook
}

// MakeBuilder creates a new Builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithRegistry sets the registry that devices are built from.
func (b Builder) WithRegistry(r *registry.Registry) Builder {
	b.registry = r
	return b
}

// WithLogger sets the logger used to report bad calls.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithHook adds a hook that is attached to every device built and to each of
// its ports.
func (b Builder) WithHook(h hooking.Hook) Builder {
	hooks := make([]hooking.Hook, len(b.hooks), len(b.hooks)+1)
	copy(hooks, b.hooks)
	b.hooks = append(hooks, h)

	return b
}

// Build creates the bridge.
func (b Builder) Build() *Bridge {
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	r := b.registry
	if r == nil {
		r = registry.New(logger)
	}

	return &Bridge{
		registry: r,
		logger:   logger,
		handles:  idgen.New(),
		hooks:    b.hooks,
		devices:  make(map[Handle]*deviceEntry),
		ports:    make(map[Handle]*portEntry),
	}
}
