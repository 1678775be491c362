// Package ticker provides a port-less device that logs every lifecycle
// callback. It is the smallest useful check that a simulator drives devices
// correctly.
package ticker

import (
	"log/slog"

	"github.com/sarchlab/cosim/device"
	"github.com/sarchlab/cosim/naming"
	"github.com/sarchlab/cosim/registry"
)

// TypeName is the name the Ticker factory is registered under.
const TypeName = "Ticker"

// Ticker logs its timebase at every cycle boundary and close step.
type Ticker struct {
	*device.DeviceBase
}

// New creates a Ticker. The argument string is used as the instance name.
func New(arg string, logger *slog.Logger) *Ticker {
	t := &Ticker{}
	t.DeviceBase = device.NewDeviceBase(naming.InstanceName(TypeName, arg), t)
	t.SetLogger(logger)

	t.Logger().Info("ticker created", "arg", arg)

	return t
}

func (t *Ticker) log(callback string) {
	t.Logger().Info(callback, "time", t.Timebase())
}

// CycleStart logs the new timebase.
func (t *Ticker) CycleStart() {
	t.log("cycle start")
}

// CycleFinish logs the timebase of the cycle that ends.
func (t *Ticker) CycleFinish() {
	t.log("cycle finish")
}

// PreClose logs before the ports close.
func (t *Ticker) PreClose() {
	t.log("pre close")
}

// PostClose logs after the ports close.
func (t *Ticker) PostClose() {
	t.log("post close")
}

// Register adds the Ticker factory to r.
func Register(r *registry.Registry) error {
	return r.RegisterFactory(TypeName, registry.FactoryFunc(
		func(arg string, _ []uint32) (device.Device, error) {
			return New(arg, r.Logger()), nil
		}))
}
