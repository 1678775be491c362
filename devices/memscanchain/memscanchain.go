// Package memscanchain provides a testbench device for a memory scan chain.
//
// The device drives a stream of data words and memory requests into the
// design through its Stimulus port and checks what the design emits on its
// Output port. The design is expected to pass data words and requests for
// non-local addresses through unchanged, to answer local reads with the word
// stored at that address, and to swallow local writes.
package memscanchain

import (
	"github.com/sarchlab/cosim/device"
)

// TypeName is the name the factory is registered under.
const TypeName = "MemScanChainTest"

// Port indexes.
const (
	StimulusPort uint8 = iota
	OutputPort
)

// HistoryEntry is a stimulus item with the time it was consumed.
type HistoryEntry struct {
	Time uint64
	Item Request
}

// Testbench is the MemScanChainTest device.
type Testbench struct {
	*device.DeviceBase

	stimulus device.Port
	output   device.Port

	steps     int
	localSize int

	step    int
	current Request
	staged  bool

	history   []HistoryEntry
	memory    map[uint16]uint32
	expect    []Request
	outputPos int
	errCount  int
}

// Errors returns how many outputs did not match the expectation.
func (t *Testbench) Errors() int {
	return t.errCount
}

// Missing returns how many expected outputs have not arrived.
func (t *Testbench) Missing() int {
	if t.outputPos >= len(t.expect) {
		return 0
	}

	return len(t.expect) - t.outputPos
}

// History returns the consumed stimulus items in consumption order.
func (t *Testbench) History() []HistoryEntry {
	history := make([]HistoryEntry, len(t.history))
	copy(history, t.history)

	return history
}

// Stimulus returns the port the design reads from.
func (t *Testbench) Stimulus() device.Port {
	return t.stimulus
}

// Output returns the port the design writes to.
func (t *Testbench) Output() device.Port {
	return t.output
}

// CycleFinish does nothing; all effects are applied when ports are accessed.
func (t *Testbench) CycleFinish() {}

// CycleStart stages the next stimulus item if the previous one has been
// consumed.
func (t *Testbench) CycleStart() {
	if t.staged || t.stimulus.Status() == device.StatusEnd {
		return
	}

	t.nextRequest()
}

// PreClose reports the result of the test.
func (t *Testbench) PreClose() {
	t.Logger().Info("testbench closing",
		"errors", t.errCount,
		"missing", t.Missing(),
		"consumed", len(t.history))
}

// PostClose does nothing.
func (t *Testbench) PostClose() {}

func (t *Testbench) nextRequest() {
	i := t.step

	switch {
	case i < t.steps:
		t.current = Request{
			Addr: uint16(i),
			Data: 0xffff<<16 | uint32(i),
		}
	case i < 2*t.steps:
		a := i - t.steps
		t.current = Request{
			Request: true,
			Addr:    uint16(a),
			Write:   true,
			Data:    0xeeee<<16 | uint32(a),
		}
	case i < 3*t.steps:
		t.current = Request{
			Request: true,
			Addr:    uint16(i - 2*t.steps),
		}
	default:
		t.stimulus.SetStatus(device.StatusEnd)
		return
	}

	t.step++
	t.staged = true
	t.stimulus.SetStatus(device.StatusReady)
}

func (t *Testbench) isLocal(addr uint16) bool {
	return int(addr) < t.localSize
}

func (t *Testbench) consume() Request {
	item := t.current

	t.history = append(t.history, HistoryEntry{Time: t.Timebase(), Item: item})
	t.Logger().Debug("in", "time", t.Timebase(), "item", item.String())

	switch {
	case !item.Request || !t.isLocal(item.Addr):
		t.expect = append(t.expect, item)
	case !item.Write:
		t.expect = append(t.expect, Request{Data: t.memory[item.Addr]})
	}

	if item.Request && item.Write {
		t.memory[item.Addr] = item.Data
	}

	t.staged = false
	t.stimulus.SetStatus(device.StatusWait)

	return item
}

func (t *Testbench) check(got Request) {
	t.Logger().Debug("out", "time", t.Timebase(), "item", got.String())

	if t.outputPos >= len(t.expect) {
		t.Logger().Error("unexpected output", "item", got.String())
		t.errCount++

		return
	}

	expected := t.expect[t.outputPos]
	t.outputPos++

	msg := mismatch(expected, got)
	if msg == "" {
		return
	}

	t.errCount++
	t.Logger().Error(msg,
		"time", t.Timebase(),
		"expected", expected.String(),
		"received", got.String())
}

func mismatch(expected, got Request) string {
	switch {
	case expected.Request && !got.Request:
		return "expected a request pass-through but received data"
	case got.Request && !expected.Request:
		return "expected response data but received a request pass-through"
	case expected.Request &&
		(got.Addr != expected.Addr ||
			got.Write != expected.Write ||
			(expected.Write && got.Data != expected.Data)):
		return "pass-through request differs from expected"
	case got.Data != expected.Data:
		return "data received differs from expected"
	}

	return ""
}

type stimulusHandler struct {
	device.NopPortHandler

	tb *Testbench
}

func (h stimulusHandler) HandleRead(buf []uint32) {
	copy(buf, h.tb.current.Pack())

	if h.tb.staged {
		h.tb.consume()
	}
}

type outputHandler struct {
	device.NopPortHandler

	tb *Testbench
}

func (h outputHandler) HandleWrite(buf []uint32) {
	if len(buf) < RequestWords {
		h.tb.Logger().Error("output word count too small", "words", len(buf))
		h.tb.errCount++

		return
	}

	h.tb.check(UnpackRequest(buf))
}
