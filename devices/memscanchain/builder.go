package memscanchain

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sarchlab/cosim/device"
	"github.com/sarchlab/cosim/naming"
	"github.com/sarchlab/cosim/registry"
)

// Default sizes of the generated test.
const (
	DefaultSteps     = 300
	DefaultLocalSize = 256
)

// Builder can build testbenches.
type Builder struct {
	logger    *slog.Logger
	steps     int
	localSize int
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		steps:     DefaultSteps,
		localSize: DefaultLocalSize,
	}
}

// WithLogger sets the logger of the built device.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithSteps sets the number of items in each of the three phases.
func (b Builder) WithSteps(n int) Builder {
	b.steps = n
	return b
}

// WithLocalSize sets how many addresses, starting from 0, the design under
// test serves locally.
func (b Builder) WithLocalSize(n int) Builder {
	b.localSize = n
	return b
}

// Build creates a testbench.
func (b Builder) Build(name string) *Testbench {
	if b.steps < 0 || b.steps > 1<<16 {
		panic("steps must be in [0, 65536]")
	}

	t := &Testbench{
		steps:     b.steps,
		localSize: b.localSize,
		memory:    make(map[uint16]uint32),
	}
	t.DeviceBase = device.NewDeviceBase(name, t)
	t.SetLogger(b.logger)

	t.stimulus = device.PortBuilder{}.
		WithDevice(t).
		WithWidth(RequestWords).
		WithHandler(stimulusHandler{tb: t}).
		WithInitialStatus(device.StatusWait).
		Build("Stimulus")
	t.output = device.PortBuilder{}.
		WithDevice(t).
		WithWidth(RequestWords).
		WithHandler(outputHandler{tb: t}).
		WithInitialStatus(device.StatusReady).
		Build("Output")

	t.AddPort(t.stimulus)
	t.AddPort(t.output)

	return t
}

// ErrBadArgument is wrapped by argument parsing failures.
var ErrBadArgument = errors.New("bad argument")

// ParseArg configures the builder from an argument string of
// space or comma separated key=value pairs. The keys are name, steps, and
// local. A lone word without "=" is taken as the name.
func (b Builder) ParseArg(arg string) (Builder, string, error) {
	name := ""

	fields := strings.FieldsFunc(arg, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})

	for _, f := range fields {
		key, value, found := strings.Cut(f, "=")
		if !found {
			name = f
			continue
		}

		switch key {
		case "name":
			name = value
		case "steps", "local":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return b, "", errors.Wrapf(ErrBadArgument, "%s=%q", key, value)
			}

			if key == "steps" {
				b = b.WithSteps(n)
			} else {
				b = b.WithLocalSize(n)
			}
		default:
			return b, "", errors.Wrapf(ErrBadArgument, "unknown key %q", key)
		}
	}

	if b.steps > 1<<16 {
		return b, "", errors.Wrapf(ErrBadArgument, "steps=%d", b.steps)
	}

	return b, naming.InstanceName(TypeName, name), nil
}

// Register adds the MemScanChainTest factory to r.
func Register(r *registry.Registry) error {
	return r.RegisterFactory(TypeName, registry.FactoryFunc(
		func(arg string, _ []uint32) (device.Device, error) {
			b, name, err := MakeBuilder().WithLogger(r.Logger()).ParseArg(arg)
			if err != nil {
				return nil, err
			}

			t := b.Build(name)
			t.Logger().Info("testbench created", "arg", arg)

			return t, nil
		}))
}
