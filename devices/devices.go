// Package devices lists the device modules built into the host.
package devices

import (
	"sort"

	"github.com/sarchlab/cosim/devices/memscanchain"
	"github.com/sarchlab/cosim/devices/ticker"
	"github.com/sarchlab/cosim/registry"
)

// Builtin maps each built-in device type name to its registration entry
// point.
var Builtin = map[string]registry.Registrar{
	ticker.TypeName:       ticker.Register,
	memscanchain.TypeName: memscanchain.Register,
}

// Names returns the built-in type names, sorted.
func Names() []string {
	names := make([]string, 0, len(Builtin))
	for name := range Builtin {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Register runs the registrar of every built-in module accepted by want. A
// nil want accepts all of them.
func Register(r *registry.Registry, want func(name string) bool) error {
	for _, name := range Names() {
		if want != nil && !want(name) {
			continue
		}

		if err := Builtin[name](r); err != nil {
			return err
		}
	}

	return nil
}
