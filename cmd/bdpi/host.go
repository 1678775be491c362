package main

import (
	"os"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sarchlab/cosim/bridge"
	"github.com/sarchlab/cosim/config"
	"github.com/sarchlab/cosim/registry"
	"github.com/sarchlab/cosim/simulation"
)

// ConfigEnv names the environment variable holding the optional config file
// path of the library.
const ConfigEnv = "COSIM_CONFIG"

type host struct {
	once sync.Once
	sim  *simulation.Simulation
	err  error

	build func() (*simulation.Simulation, error)
}

var process = &host{build: buildFromEnv}

func buildFromEnv() (*simulation.Simulation, error) {
	cfg, err := config.Load(os.Getenv(ConfigEnv))
	if err != nil {
		return nil, err
	}

	return simulation.MakeBuilder().WithConfig(cfg).Build()
}

// bridge returns the bridge of the process, building it on first use. A
// configuration error cannot be reported through the C interface, so it
// panics.
func (h *host) bridge() *bridge.Bridge {
	h.once.Do(func() {
		h.sim, h.err = h.build()
	})

	if h.err != nil {
		panic(errors.Wrap(h.err, "cannot start cosimulation host"))
	}

	return h.sim.Bridge()
}

// ensureRegistered makes sure the module behind register is available even
// when the configuration left it out.
func (h *host) ensureRegistered(register registry.Registrar) {
	r := h.bridge().Registry()

	err := register(r)
	if err != nil && !errors.Is(err, registry.ErrDuplicateFactory) {
		panic(err)
	}
}

func (h *host) terminate() {
	if h.sim != nil {
		h.sim.Terminate()
	}
}

// buildDevice builds a device of typeName. The factory tells how many words
// are read from data.
func (h *host) buildDevice(typeName, arg string, data *uint32) bridge.Handle {
	n := h.bridge().Registry().DataWords(typeName)

	return h.buildDeviceN(typeName, arg, data, n)
}

// buildDeviceN builds a device of typeName with exactly n words read from
// data.
func (h *host) buildDeviceN(
	typeName, arg string,
	data *uint32,
	n int,
) bridge.Handle {
	var words []uint32
	if data != nil && n > 0 {
		words = make([]uint32, n)
		copy(words, unsafe.Slice(data, n))
	}

	return h.bridge().BuildDeviceFromFactory(typeName, arg, words)
}

func (h *host) readPort(p bridge.Handle, ret []uint32) {
	b := h.bridge()

	buf := make([]uint32, b.PortWidth(p))
	b.PortReadData(p, buf)

	copy(ret, buf)
}

func (h *host) writePort(p bridge.Handle, data []uint32) {
	b := h.bridge()

	buf := make([]uint32, b.PortWidth(p))
	copy(buf, data)

	b.PortWriteData(p, buf)
}
