package device

import "github.com/sarchlab/cosim/hooking"

// HookPosCycleFinish marks the end of a cycle, before the timebase moves.
var HookPosCycleFinish = &hooking.HookPos{Name: "Cycle Finish"}

// HookPosCycleStart marks the start of a cycle, after the timebase moved.
var HookPosCycleStart = &hooking.HookPos{Name: "Cycle Start"}

// HookPosBeforeClose marks when a device starts closing.
var HookPosBeforeClose = &hooking.HookPos{Name: "Before Close"}

// HookPosAfterClose marks when a device and all its ports are closed.
var HookPosAfterClose = &hooking.HookPos{Name: "After Close"}

// HookPosPortRead marks when the simulator reads data out of a port. The item
// is a copy of the words returned.
var HookPosPortRead = &hooking.HookPos{Name: "Port Read"}

// HookPosPortWrite marks when the simulator writes data into a port. The item
// is a copy of the words written.
var HookPosPortWrite = &hooking.HookPos{Name: "Port Write"}

// HookPosPortStatus marks a port status change. The item is the new status
// and the detail is the old one.
var HookPosPortStatus = &hooking.HookPos{Name: "Port Status"}

// HookPosPortClose marks when a port is closed.
var HookPosPortClose = &hooking.HookPos{Name: "Port Close"}
