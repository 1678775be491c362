// Package registry maps device type names to the factories that build them.
//
// Device modules do not register themselves at load time. Each module exposes
// a Register function (a Registrar) that the host calls explicitly on a
// Registry it constructed during startup.
package registry

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sarchlab/cosim/device"
)

// ErrDuplicateFactory is returned when a device type name is already bound.
var ErrDuplicateFactory = errors.New("factory already registered")

// ErrUnknownDeviceType is returned when no factory is bound to a name.
var ErrUnknownDeviceType = errors.New("unknown device type")

// A Factory builds one concrete device type from an argument string and a
// data blob. Ownership of the returned device transfers to the caller.
type Factory interface {
	Build(arg string, data []uint32) (device.Device, error)
}

// FactoryFunc adapts a function into a Factory.
type FactoryFunc func(arg string, data []uint32) (device.Device, error)

// Build calls f(arg, data).
func (f FactoryFunc) Build(arg string, data []uint32) (device.Device, error) {
	return f(arg, data)
}

// A DataSizer is a Factory that reads a fixed number of data words when it
// builds a device. Factories that do not implement it read none.
type DataSizer interface {
	DataWords() int
}

type sizedFactory struct {
	Factory
	words int
}

func (f sizedFactory) DataWords() int {
	return f.words
}

// WithDataWords wraps f so that it reports reading words data words.
func WithDataWords(f Factory, words int) Factory {
	if words < 0 {
		panic("data word count must not be negative")
	}

	return sizedFactory{Factory: f, words: words}
}

// A Registrar adds the factories of one device module to a registry.
type Registrar func(r *Registry) error

// Registry is the name to factory mapping. It holds non-owning references to
// factories that live for the whole process.
type Registry struct {
	logger    *slog.Logger
	factories map[string]Factory
}

// New creates an empty registry. A nil logger means slog.Default().
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		logger:    logger,
		factories: make(map[string]Factory),
	}
}

// Logger returns the logger that device modules should hand to the devices
// they build.
func (r *Registry) Logger() *slog.Logger {
	return r.logger
}

// RegisterFactory binds name to f. Binding a name twice is a configuration
// error; the first binding is kept.
func (r *Registry) RegisterFactory(name string, f Factory) error {
	if f == nil {
		panic("cannot register a nil factory")
	}

	if _, found := r.factories[name]; found {
		return errors.Wrapf(ErrDuplicateFactory, "device type %q", name)
	}

	r.logger.Debug("registering device factory", "type", name)
	r.factories[name] = f

	return nil
}

// MustRegisterFactory is like RegisterFactory but panics on error.
func (r *Registry) MustRegisterFactory(name string, f Factory) {
	if err := r.RegisterFactory(name, f); err != nil {
		panic(err)
	}
}

// Build looks up name and delegates to its factory. An unknown name is logged
// together with the known names and reported as ErrUnknownDeviceType.
func (r *Registry) Build(
	name, arg string,
	data []uint32,
) (device.Device, error) {
	r.logger.Info("building device", "type", name, "arg", arg)

	f, found := r.factories[name]
	if !found {
		r.logger.Warn("no matching factory found",
			"type", name,
			"known", strings.Join(r.Names(), " "))

		return nil, errors.Wrapf(ErrUnknownDeviceType, "device type %q", name)
	}

	d, err := f.Build(arg, data)
	if err != nil {
		return nil, errors.Wrapf(err, "building device type %q", name)
	}

	return d, nil
}

// Has reports whether name is bound.
func (r *Registry) Has(name string) bool {
	_, found := r.factories[name]
	return found
}

// DataWords returns how many data words the factory bound to name reads. It
// returns 0 for unknown names and for factories that are not DataSizers.
func (r *Registry) DataWords(name string) int {
	f, found := r.factories[name]
	if !found {
		return 0
	}

	sizer, ok := f.(DataSizer)
	if !ok {
		return 0
	}

	return sizer.DataWords()
}

// Names returns the registered type names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// RegisterAll runs every registrar and stops at the first error.
func RegisterAll(r *Registry, registrars ...Registrar) error {
	for _, register := range registrars {
		if err := register(r); err != nil {
			return err
		}
	}

	return nil
}
