// Package naming gives devices and ports human-readable names.
package naming

import (
	"strings"

	"github.com/rs/xid"
)

// Named describes an object that has a name.
type Named interface {
	// Name returns the name of the object.
	Name() string
}

// NamedBase is a base implementation of Named.
type NamedBase struct {
	name string
}

// Name returns the name.
func (b *NamedBase) Name() string {
	return b.name
}

// MakeNamedBase creates a new NamedBase
func MakeNamedBase(name string) NamedBase {
	return NamedBase{name: name}
}

// InstanceName returns the requested name if it is not blank. Otherwise, it
// derives a unique name from the device type, so that two anonymous instances
// of the same type never collide in logs and recordings.
func InstanceName(typeName, requested string) string {
	requested = strings.TrimSpace(requested)
	if requested != "" {
		return requested
	}

	return typeName + "_" + xid.New().String()
}

// PortName joins a device name and a port name.
func PortName(deviceName, portName string) string {
	return deviceName + "." + portName
}
