// Package device provides the Device and Port abstractions that native models
// implement to be driven by a cycle-based simulator.
//
// A Device owns a fixed, ordered set of Ports and a logical timebase. The
// simulator advances the device with Tick, polls each port's Status, and only
// reads or writes a port when it reports StatusReady. Close tears the device
// down and cascades to every port.
package device

import (
	"log/slog"

	"github.com/sarchlab/cosim/hooking"
	"github.com/sarchlab/cosim/naming"
)

// A Device is a timed aggregate of ports implementing one simulated
// peripheral.
type Device interface {
	naming.Named
	hooking.Hookable

	// Tick finishes the current cycle, moves the timebase to t, and starts
	// the new cycle.
	Tick(t uint64)

	// Close runs the close hooks and closes every port in addition order.
	Close()

	// GetPort returns the port added at the given index. Indexes outside
	// [0, NumPorts()) are a caller error.
	GetPort(index uint8) Port

	// AddPort appends a port during construction and returns its index.
	AddPort(p Port) uint8

	NumPorts() int
	Ports() []Port
	Timebase() uint64
	State() LifecycleState
}

// Model holds the device-specific lifecycle callbacks.
//
// CycleFinish commits the effects of the cycle that is ending and observes
// the old timebase. CycleStart observes the new timebase and prepares port
// state for the new cycle.
type Model interface {
	CycleFinish()
	CycleStart()
	PreClose()
	PostClose()
}

// NopModel implements Model with no-ops. Embed it to override only some of
// the callbacks.
type NopModel struct{}

// CycleFinish does nothing.
func (NopModel) CycleFinish() {}

// CycleStart does nothing.
func (NopModel) CycleStart() {}

// PreClose does nothing.
func (NopModel) PreClose() {}

// PostClose does nothing.
func (NopModel) PostClose() {}

// DeviceBase implements the Device interface. Concrete devices embed a
// *DeviceBase and pass themselves as the Model.
type DeviceBase struct {
	hooking.HookableBase
	naming.NamedBase

	model    Model
	logger   *slog.Logger
	timebase uint64
	ports    []Port
	state    LifecycleState
	started  bool
}

// NewDeviceBase creates a DeviceBase that calls back into model. A nil model
// behaves as NopModel.
func NewDeviceBase(name string, model Model) *DeviceBase {
	if model == nil {
		model = NopModel{}
	}

	return &DeviceBase{
		NamedBase: naming.MakeNamedBase(name),
		model:     model,
		logger:    slog.Default(),
	}
}

// SetLogger replaces the logger used for lifecycle diagnostics.
func (d *DeviceBase) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	d.logger = logger
}

// Logger returns the logger of the device, tagged with the device name.
func (d *DeviceBase) Logger() *slog.Logger {
	return d.logger.With("device", d.Name())
}

// Tick finishes the current cycle, updates the timebase, and starts the next
// cycle. The timebase is expected to be non-decreasing but this is not
// checked. Ticking a device that is not open does nothing.
func (d *DeviceBase) Tick(t uint64) {
	if d.state != StateOpen {
		d.Logger().Warn("tick ignored, device is not open",
			"state", d.state.String(), "time", t)
		return
	}

	d.started = true

	d.model.CycleFinish()
	d.InvokeHook(hooking.HookCtx{
		Domain: d,
		Pos:    HookPosCycleFinish,
		Now:    d.timebase,
	})

	d.timebase = t

	d.model.CycleStart()
	d.InvokeHook(hooking.HookCtx{
		Domain: d,
		Pos:    HookPosCycleStart,
		Now:    d.timebase,
	})
}

// Close runs PreClose, closes every port in addition order, and runs
// PostClose. Closing a device twice is a no-op.
func (d *DeviceBase) Close() {
	if d.state != StateOpen {
		d.Logger().Warn("close ignored, device already closed",
			"state", d.state.String())
		return
	}

	d.state = StateClosing
	d.InvokeHook(hooking.HookCtx{
		Domain: d,
		Pos:    HookPosBeforeClose,
		Now:    d.timebase,
	})

	d.model.PreClose()

	for _, p := range d.ports {
		p.Close()
	}

	d.model.PostClose()

	d.state = StateClosed
	d.InvokeHook(hooking.HookCtx{
		Domain: d,
		Pos:    HookPosAfterClose,
		Now:    d.timebase,
	})
}

// GetPort returns the port registered at index.
func (d *DeviceBase) GetPort(index uint8) Port {
	return d.ports[index]
}

// AddPort appends a port and returns its stable index. Ports can only be
// added before the first tick.
func (d *DeviceBase) AddPort(p Port) uint8 {
	if p == nil {
		panic("cannot add a nil port")
	}

	if d.started || d.state != StateOpen {
		panic("ports can only be added while the device is being constructed")
	}

	if len(d.ports) > maxPorts-1 {
		panic("too many ports")
	}

	index := uint8(len(d.ports))
	d.ports = append(d.ports, p)

	return index
}

const maxPorts = 256

// NumPorts returns how many ports were added.
func (d *DeviceBase) NumPorts() int {
	return len(d.ports)
}

// Ports returns the ports in addition order.
func (d *DeviceBase) Ports() []Port {
	ports := make([]Port, len(d.ports))
	copy(ports, d.ports)

	return ports
}

// Timebase returns the time given to the last Tick.
func (d *DeviceBase) Timebase() uint64 {
	return d.timebase
}

// State returns the lifecycle state.
func (d *DeviceBase) State() LifecycleState {
	return d.state
}

var _ Device = (*DeviceBase)(nil)
