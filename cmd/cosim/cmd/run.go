package cmd

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/sarchlab/cosim/bridge"
	"github.com/sarchlab/cosim/device"
	"github.com/sarchlab/cosim/devices/memscanchain"
	"github.com/spf13/cobra"
)

// Designs that can stand in for the simulated hardware.
const (
	DesignNone      = "none"
	DesignLoopback  = "loopback"
	DesignScanChain = "scanchain"
)

// ErrUnknownDesign is returned for an unsupported --design value.
var ErrUnknownDesign = errors.New("unknown design")

// ErrBuildFailed is returned when the device cannot be built.
var ErrBuildFailed = errors.New("device cannot be built")

// RunOptions controls how a device is driven.
type RunOptions struct {
	Arg       string
	Cycles    uint64
	Period    uint64
	Design    string
	LocalSize int
}

// RunResult summarizes a run.
type RunResult struct {
	Cycles    uint64             `json:"cycles"`
	Transfers int                `json:"transfers"`
	Device    *bridge.DeviceInfo `json:"device"`
}

type design func(in []uint32) ([]uint32, bool)

func pickDesign(opts RunOptions) (design, error) {
	switch opts.Design {
	case DesignNone, "":
		return nil, nil
	case DesignLoopback:
		return func(in []uint32) ([]uint32, bool) { return in, true }, nil
	case DesignScanChain:
		return memscanchain.NewReferenceDesign(opts.LocalSize).ProcessWords, nil
	default:
		return nil, errors.Wrapf(ErrUnknownDesign, "%q", opts.Design)
	}
}

// Drive builds a device of typeName on b and ticks it the way a simulator
// would. When a design is selected, words read from port 0 are fed through
// it and the result is written to port 1. The run stops after opts.Cycles
// cycles or once port 0 reports End, and the device is closed.
func Drive(b *bridge.Bridge, typeName string, opts RunOptions) (*RunResult, error) {
	dut, err := pickDesign(opts)
	if err != nil {
		return nil, err
	}

	h := b.BuildDeviceFromFactory(typeName, opts.Arg, nil)
	if h == bridge.NullHandle {
		return nil, errors.Wrapf(ErrBuildFailed, "type %q", typeName)
	}

	var in, out bridge.Handle

	numPorts := 0
	b.Inspect(h, func(d device.Device) { numPorts = d.NumPorts() })

	if dut != nil && numPorts < 2 {
		b.Close(h)

		return nil, errors.Errorf("design needs 2 ports, %s has %d",
			typeName, numPorts)
	}

	if numPorts > 0 {
		in = b.GetPort(h, 0)
	}

	if numPorts > 1 {
		out = b.GetPort(h, 1)
	}

	result := &RunResult{}

	for cycle := uint64(1); cycle <= opts.Cycles; cycle++ {
		b.Tick(h, cycle*opts.Period)
		result.Cycles = cycle

		if in == bridge.NullHandle {
			continue
		}

		if b.PortStatus(in) == uint8(device.StatusEnd) {
			break
		}

		if dut == nil || b.PortStatus(in) != uint8(device.StatusReady) {
			continue
		}

		buf := make([]uint32, b.PortWidth(in))
		b.PortReadData(in, buf)

		words, emit := dut(buf)
		if emit && b.PortStatus(out) == uint8(device.StatusReady) {
			b.PortWriteData(out, words)
			result.Transfers++
		}
	}

	b.Close(h)

	infos := b.Devices()
	for i := range infos {
		if infos[i].Handle == h {
			result.Device = &infos[i]
		}
	}

	return result, nil
}

var runOpts RunOptions

var runCmd = &cobra.Command{
	Use:   "run TYPE",
	Short: "Build a device and drive it for a number of cycles.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildSimulation(cmd)
		if err != nil {
			return err
		}
		defer s.Terminate()

		result, err := Drive(s.Bridge(), args[0], runOpts)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		return errors.Wrap(enc.Encode(result), "writing result")
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOpts.Arg, "arg", "", "argument string passed to the factory")
	f.Uint64Var(&runOpts.Cycles, "cycles", 1000, "maximum number of cycles")
	f.Uint64Var(&runOpts.Period, "period", 10, "timebase increment per cycle")
	f.StringVar(&runOpts.Design, "design", DesignNone,
		"design under test: none, loopback, or scanchain")
	f.IntVar(&runOpts.LocalSize, "local", memscanchain.DefaultLocalSize,
		"local address space of the scanchain design")

	rootCmd.AddCommand(runCmd)
}
