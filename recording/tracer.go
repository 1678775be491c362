package recording

import (
	"fmt"
	"math"
	"strings"

	"github.com/sarchlab/cosim/device"
	"github.com/sarchlab/cosim/hooking"
	"github.com/sarchlab/cosim/naming"
)

// Table names used by the Tracer.
const (
	TransferTable  = "port_transfer"
	StatusTable    = "port_status"
	LifecycleTable = "device_lifecycle"
)

// TransferEntry is one word transfer over a port.
type TransferEntry struct {
	Time      int64
	Port      string
	Direction string
	Words     string
}

// StatusEntry is one port status change.
type StatusEntry struct {
	Time      int64
	Port      string
	OldStatus string
	NewStatus string
}

// LifecycleEntry is one device cycle boundary or close step.
type LifecycleEntry struct {
	Time   int64
	Device string
	Event  string
}

// Tracer is a hook that records device and port activity. SQLite stores
// signed 64-bit integers, so times above math.MaxInt64 are recorded as
// math.MaxInt64.
type Tracer struct {
	recorder DataRecorder
	cycles   bool
}

// NewTracer creates a Tracer and its tables in recorder.
func NewTracer(recorder DataRecorder) *Tracer {
	recorder.CreateTable(TransferTable, TransferEntry{})
	recorder.CreateTable(StatusTable, StatusEntry{})
	recorder.CreateTable(LifecycleTable, LifecycleEntry{})

	return &Tracer{recorder: recorder}
}

// WithCycles makes the tracer record every cycle boundary. By default only
// close steps go into the lifecycle table.
func (t *Tracer) WithCycles() *Tracer {
	t.cycles = true
	return t
}

// Func records the hook.
func (t *Tracer) Func(ctx hooking.HookCtx) {
	name := domainName(ctx.Domain)
	now := traceTime(ctx.Now)

	switch ctx.Pos {
	case device.HookPosPortRead:
		t.recordTransfer(now, name, "read", ctx.Item)
	case device.HookPosPortWrite:
		t.recordTransfer(now, name, "write", ctx.Item)
	case device.HookPosPortStatus:
		t.recorder.InsertData(StatusTable, StatusEntry{
			Time:      now,
			Port:      name,
			OldStatus: fmt.Sprint(ctx.Detail),
			NewStatus: fmt.Sprint(ctx.Item),
		})
	case device.HookPosCycleFinish, device.HookPosCycleStart:
		if t.cycles {
			t.recordLifecycle(now, name, ctx.Pos)
		}
	case device.HookPosBeforeClose, device.HookPosAfterClose:
		t.recordLifecycle(now, name, ctx.Pos)
	}
}

func (t *Tracer) recordTransfer(now int64, port, dir string, item any) {
	words, _ := item.([]uint32)

	t.recorder.InsertData(TransferTable, TransferEntry{
		Time:      now,
		Port:      port,
		Direction: dir,
		Words:     FormatWords(words),
	})
}

func (t *Tracer) recordLifecycle(now int64, dev string, pos *hooking.HookPos) {
	t.recorder.InsertData(LifecycleTable, LifecycleEntry{
		Time:   now,
		Device: dev,
		Event:  pos.Name,
	})
}

func traceTime(t uint64) int64 {
	if t > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(t)
}

// FormatWords renders words as space separated 8-digit hex, word 0 first.
func FormatWords(words []uint32) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = fmt.Sprintf("%08x", w)
	}

	return strings.Join(parts, " ")
}

func domainName(d hooking.Hookable) string {
	if named, ok := d.(naming.Named); ok {
		return named.Name()
	}

	return fmt.Sprintf("%T", d)
}
