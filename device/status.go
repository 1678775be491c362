package device

import "fmt"

// Status is the handshake state a port reports to the simulator. The numeric
// values are part of the foreign ABI.
type Status uint8

const (
	// StatusReady means the port can be read from or written to this cycle.
	StatusReady Status = 0

	// StatusWait means the port is not finished but cannot provide or accept
	// data this cycle.
	StatusWait Status = 1

	// StatusEnd means the port is permanently finished.
	StatusEnd Status = 255
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusWait:
		return "Wait"
	case StatusEnd:
		return "End"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// LifecycleState tracks where a device is in its open-closing-closed life.
type LifecycleState int

const (
	// StateOpen is the state of a device from construction until Close.
	StateOpen LifecycleState = iota

	// StateClosing is the state while the close hooks and the ports are being
	// closed.
	StateClosing

	// StateClosed is the final state.
	StateClosed
)

func (s LifecycleState) String() string {
	switch s {
	case StateOpen:
		return "Open"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("LifecycleState(%d)", int(s))
	}
}
