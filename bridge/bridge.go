// Package bridge exposes devices and ports to an external simulator through a
// flat set of operations addressed by opaque integer handles.
//
// The simulator never sees a Go pointer. Every device built through the bridge
// and every port requested from it is recorded in a handle table, and the
// handle is the only thing that crosses the foreign boundary. Bad handles are
// a caller error; the bridge logs them and returns a sentinel instead of
// crashing the simulator.
package bridge

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/sarchlab/cosim/device"
	"github.com/sarchlab/cosim/hooking"
	"github.com/sarchlab/cosim/idgen"
	"github.com/sarchlab/cosim/registry"
)

// Handle is an opaque identifier for a device or a port.
type Handle uint64

// NullHandle is returned when a device or port cannot be provided.
const NullHandle Handle = 0

type deviceEntry struct {
	typeName string
	dev      device.Device
	ports    map[uint8]Handle
}

type portEntry struct {
	owner Handle
	index uint8
	port  device.Port
}

// Bridge owns the handle table.
type Bridge struct {
	lock sync.Mutex

	registry *registry.Registry
	logger   *slog.Logger
	handles  idgen.Generator
	hooks    []hooking.Hook

	devices map[Handle]*deviceEntry
	ports   map[Handle]*portEntry
}

// Registry returns the registry the bridge builds devices from.
func (b *Bridge) Registry() *registry.Registry {
	return b.registry
}

// BuildDeviceFromFactory builds a device of the named type and returns its
// handle. NullHandle is returned when the type is unknown or the factory
// fails.
func (b *Bridge) BuildDeviceFromFactory(
	typeName, arg string,
	data []uint32,
) Handle {
	b.lock.Lock()
	defer b.lock.Unlock()

	dev, err := b.registry.Build(typeName, arg, data)
	if err != nil {
		b.logger.Error("cannot build device", "type", typeName, "error", err)
		return NullHandle
	}

	if dev == nil {
		b.logger.Error("factory returned no device", "type", typeName)
		return NullHandle
	}

	b.attachHooks(dev)

	h := Handle(b.handles.Generate())
	b.devices[h] = &deviceEntry{
		typeName: typeName,
		dev:      dev,
		ports:    make(map[uint8]Handle),
	}

	b.logger.Debug("device built",
		"type", typeName, "name", dev.Name(), "handle", uint64(h))

	return h
}

func (b *Bridge) attachHooks(dev device.Device) {
	for _, hook := range b.hooks {
		dev.AcceptHook(hook)

		for _, p := range dev.Ports() {
			p.AcceptHook(hook)
		}
	}
}

// Tick advances the device to time t.
func (b *Bridge) Tick(h Handle, t uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	e := b.deviceOrLog(h, "tick")
	if e == nil {
		return
	}

	e.dev.Tick(t)
}

// Close closes the device and all its ports. The handle stays valid.
func (b *Bridge) Close(h Handle) {
	b.lock.Lock()
	defer b.lock.Unlock()

	e := b.deviceOrLog(h, "close")
	if e == nil {
		return
	}

	e.dev.Close()
}

// GetPort returns the handle of the port at index. Asking for the same port
// twice returns the same handle.
func (b *Bridge) GetPort(h Handle, index uint8) Handle {
	b.lock.Lock()
	defer b.lock.Unlock()

	e := b.deviceOrLog(h, "get port")
	if e == nil {
		return NullHandle
	}

	if ph, found := e.ports[index]; found {
		return ph
	}

	if int(index) >= e.dev.NumPorts() {
		b.logger.Error("port index out of range",
			"device", e.dev.Name(),
			"index", index,
			"ports", e.dev.NumPorts())

		return NullHandle
	}

	ph := Handle(b.handles.Generate())
	e.ports[index] = ph
	b.ports[ph] = &portEntry{
		owner: h,
		index: index,
		port:  e.dev.GetPort(index),
	}

	return ph
}

// PortStatus returns the numeric status of the port. Unknown handles report
// End so that a simulator polling them stops.
func (b *Bridge) PortStatus(h Handle) uint8 {
	b.lock.Lock()
	defer b.lock.Unlock()

	e := b.portOrLog(h, "status")
	if e == nil {
		return uint8(device.StatusEnd)
	}

	return uint8(e.port.Status())
}

// PortReadData copies the staged words of the port into buf.
func (b *Bridge) PortReadData(h Handle, buf []uint32) {
	b.lock.Lock()
	defer b.lock.Unlock()

	e := b.portOrLog(h, "read")
	if e == nil {
		return
	}

	e.port.ReadData(buf)
}

// PortWriteData stages the words in buf into the port.
func (b *Bridge) PortWriteData(h Handle, buf []uint32) {
	b.lock.Lock()
	defer b.lock.Unlock()

	e := b.portOrLog(h, "write")
	if e == nil {
		return
	}

	e.port.WriteData(buf)
}

// PortClose closes a single port.
func (b *Bridge) PortClose(h Handle) {
	b.lock.Lock()
	defer b.lock.Unlock()

	e := b.portOrLog(h, "close")
	if e == nil {
		return
	}

	e.port.Close()
}

// PortWidth returns the number of words a transfer on the port carries, or 0
// for an unknown handle.
func (b *Bridge) PortWidth(h Handle) int {
	b.lock.Lock()
	defer b.lock.Unlock()

	e := b.portOrLog(h, "width")
	if e == nil {
		return 0
	}

	return e.port.Width()
}

func (b *Bridge) deviceOrLog(h Handle, op string) *deviceEntry {
	e, found := b.devices[h]
	if !found {
		b.logger.Error("unknown device handle", "op", op, "handle", uint64(h))
		return nil
	}

	return e
}

func (b *Bridge) portOrLog(h Handle, op string) *portEntry {
	e, found := b.ports[h]
	if !found {
		b.logger.Error("unknown port handle", "op", op, "handle", uint64(h))
		return nil
	}

	return e
}

// PortInfo summarizes one port of a device.
type PortInfo struct {
	Index  uint8  `json:"index"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Width  int    `json:"width"`
}

// DeviceInfo summarizes a device known to the bridge.
type DeviceInfo struct {
	Handle   Handle     `json:"handle"`
	Type     string     `json:"type"`
	Name     string     `json:"name"`
	Timebase uint64     `json:"timebase"`
	State    string     `json:"state"`
	Ports    []PortInfo `json:"ports"`
}

// Devices returns a snapshot of every device, ordered by handle.
func (b *Bridge) Devices() []DeviceInfo {
	b.lock.Lock()
	defer b.lock.Unlock()

	infos := make([]DeviceInfo, 0, len(b.devices))
	for h, e := range b.devices {
		info := DeviceInfo{
			Handle:   h,
			Type:     e.typeName,
			Name:     e.dev.Name(),
			Timebase: e.dev.Timebase(),
			State:    e.dev.State().String(),
		}

		for i, p := range e.dev.Ports() {
			info.Ports = append(info.Ports, PortInfo{
				Index:  uint8(i),
				Name:   p.Name(),
				Status: p.Status().String(),
				Width:  p.Width(),
			})
		}

		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Handle < infos[j].Handle
	})

	return infos
}

// Inspect calls fn with the device behind h while holding the bridge lock. It
// returns false if the handle is unknown.
func (b *Bridge) Inspect(h Handle, fn func(d device.Device)) bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	e, found := b.devices[h]
	if !found {
		return false
	}

	fn(e.dev)

	return true
}

// FindByName returns the handle of the device with the given name.
func (b *Bridge) FindByName(name string) (Handle, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()

	for h, e := range b.devices {
		if e.dev.Name() == name {
			return h, true
		}
	}

	return NullHandle, false
}
