package device

import (
	"github.com/sarchlab/cosim/hooking"
	"github.com/sarchlab/cosim/naming"
)

// A Port is one handshake-based data channel owned by a Device.
//
// The simulator must observe StatusReady before calling ReadData or
// WriteData in a cycle. The port does not enforce this.
type Port interface {
	naming.Named
	hooking.Hookable

	// Device returns the device that owns the port.
	Device() Device

	// Width returns the number of 32-bit words exchanged per transfer.
	Width() int

	Status() Status
	SetStatus(s Status)

	// ReadData copies the currently staged words into buf.
	ReadData(buf []uint32)

	// WriteData stages the words in buf into the device state.
	WriteData(buf []uint32)

	Close()
}

// PortHandler supplies the device-specific behavior behind a port.
type PortHandler interface {
	HandleRead(buf []uint32)
	HandleWrite(buf []uint32)
	HandleClose()
}

// NopPortHandler implements PortHandler with no-ops. Embed it to override
// only some of the callbacks.
type NopPortHandler struct{}

// HandleRead does nothing.
func (NopPortHandler) HandleRead([]uint32) {}

// HandleWrite does nothing.
func (NopPortHandler) HandleWrite([]uint32) {}

// HandleClose does nothing.
func (NopPortHandler) HandleClose() {}

type defaultPort struct {
	hooking.HookableBase
	naming.NamedBase

	device  Device
	width   int
	status  Status
	handler PortHandler
}

func (p *defaultPort) Device() Device {
	return p.device
}

func (p *defaultPort) Width() int {
	return p.width
}

func (p *defaultPort) Status() Status {
	return p.status
}

func (p *defaultPort) SetStatus(s Status) {
	if s == p.status {
		return
	}

	old := p.status
	p.status = s

	p.InvokeHook(hooking.HookCtx{
		Domain: p,
		Pos:    HookPosPortStatus,
		Now:    p.now(),
		Item:   s,
		Detail: old,
	})
}

func (p *defaultPort) ReadData(buf []uint32) {
	p.handler.HandleRead(buf)

	if p.NumHooks() == 0 {
		return
	}

	p.InvokeHook(hooking.HookCtx{
		Domain: p,
		Pos:    HookPosPortRead,
		Now:    p.now(),
		Item:   copyWords(buf),
	})
}

func (p *defaultPort) WriteData(buf []uint32) {
	p.handler.HandleWrite(buf)

	if p.NumHooks() == 0 {
		return
	}

	p.InvokeHook(hooking.HookCtx{
		Domain: p,
		Pos:    HookPosPortWrite,
		Now:    p.now(),
		Item:   copyWords(buf),
	})
}

func (p *defaultPort) Close() {
	p.handler.HandleClose()
	p.SetStatus(StatusEnd)

	p.InvokeHook(hooking.HookCtx{
		Domain: p,
		Pos:    HookPosPortClose,
		Now:    p.now(),
	})
}

func (p *defaultPort) now() uint64 {
	if p.device == nil {
		return 0
	}

	return p.device.Timebase()
}

func copyWords(buf []uint32) []uint32 {
	words := make([]uint32, len(buf))
	copy(words, buf)

	return words
}

// PortBuilder builds ports. The device given to WithDevice must already be
// allocated; the port keeps a non-owning reference to it.
type PortBuilder struct {
	device        Device
	width         int
	handler       PortHandler
	initialStatus Status
	statusGiven   bool
}

// WithDevice sets the owning device.
func (b PortBuilder) WithDevice(d Device) PortBuilder {
	b.device = d
	return b
}

// WithWidth sets how many 32-bit words a transfer carries.
func (b PortBuilder) WithWidth(words int) PortBuilder {
	b.width = words
	return b
}

// WithHandler sets the device-specific behavior.
func (b PortBuilder) WithHandler(h PortHandler) PortBuilder {
	b.handler = h
	return b
}

// WithInitialStatus sets the status the port starts with. Ports start in
// StatusWait by default.
func (b PortBuilder) WithInitialStatus(s Status) PortBuilder {
	b.initialStatus = s
	b.statusGiven = true

	return b
}

// Build creates a port. The name is prefixed with the device name when a
// device is given.
func (b PortBuilder) Build(name string) Port {
	if b.width < 0 {
		panic("port width must not be negative")
	}

	fullName := name
	if b.device != nil {
		fullName = naming.PortName(b.device.Name(), name)
	}

	p := &defaultPort{
		NamedBase: naming.MakeNamedBase(fullName),
		device:    b.device,
		width:     b.width,
		status:    StatusWait,
		handler:   b.handler,
	}

	if b.statusGiven {
		p.status = b.initialStatus
	}

	if p.handler == nil {
		p.handler = NopPortHandler{}
	}

	return p
}
