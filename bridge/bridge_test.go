package bridge

import (
	"bytes"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/sarchlab/cosim/device"
	"github.com/sarchlab/cosim/hooking"
	"github.com/sarchlab/cosim/registry"
	"go.uber.org/mock/gomock"
)

type dualPortDevice struct {
	*device.DeviceBase

	in, out device.Port
}

func newDualPortDevice(
	name string,
	inHandler, outHandler device.PortHandler,
) *dualPortDevice {
	d := &dualPortDevice{}
	d.DeviceBase = device.NewDeviceBase(name, nil)
	d.in = device.PortBuilder{}.
		WithDevice(d).
		WithWidth(2).
		WithHandler(inHandler).
		Build("In")
	d.out = device.PortBuilder{}.
		WithDevice(d).
		WithWidth(1).
		WithHandler(outHandler).
		WithInitialStatus(device.StatusReady).
		Build("Out")
	d.AddPort(d.in)
	d.AddPort(d.out)

	return d
}

var _ = Describe("Bridge", func() {
	var (
		mockCtrl   *gomock.Controller
		logBuf     *bytes.Buffer
		inHandler  *MockPortHandler
		outHandler *MockPortHandler
		built      []*dualPortDevice
		hookPos    []string
		b          *Bridge
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		logBuf = new(bytes.Buffer)
		inHandler = NewMockPortHandler(mockCtrl)
		outHandler = NewMockPortHandler(mockCtrl)
		built = nil
		hookPos = nil

		logger := slog.New(slog.NewTextHandler(logBuf, nil))
		r := registry.New(logger)
		r.MustRegisterFactory("Dual", registry.FactoryFunc(
			func(arg string, _ []uint32) (device.Device, error) {
				d := newDualPortDevice(arg, inHandler, outHandler)
				built = append(built, d)

				return d, nil
			}))
		r.MustRegisterFactory("Broken", registry.FactoryFunc(
			func(string, []uint32) (device.Device, error) {
				return nil, errors.New("bad argument")
			}))

		b = MakeBuilder().
			WithRegistry(r).
			WithLogger(logger).
			WithHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
				hookPos = append(hookPos, ctx.Pos.Name)
			})).
			Build()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should issue non-null handles for built devices", func() {
		h1 := b.BuildDeviceFromFactory("Dual", "A", nil)
		h2 := b.BuildDeviceFromFactory("Dual", "B", nil)

		Expect(h1).NotTo(Equal(NullHandle))
		Expect(h2).NotTo(Equal(NullHandle))
		Expect(h1).NotTo(Equal(h2))
	})

	It("should return the null handle for unknown types", func() {
		h := b.BuildDeviceFromFactory("Nope", "", nil)

		Expect(h).To(Equal(NullHandle))
		Expect(logBuf.String()).To(ContainSubstring("no matching factory found"))
		Expect(logBuf.String()).To(ContainSubstring("Broken Dual"))
	})

	It("should return the null handle when the factory fails", func() {
		h := b.BuildDeviceFromFactory("Broken", "", nil)

		Expect(h).To(Equal(NullHandle))
		Expect(logBuf.String()).To(ContainSubstring("bad argument"))
	})

	It("should return stable port handles", func() {
		h := b.BuildDeviceFromFactory("Dual", "A", nil)

		p0 := b.GetPort(h, 0)
		p1 := b.GetPort(h, 1)

		Expect(p0).NotTo(Equal(NullHandle))
		Expect(p1).NotTo(Equal(NullHandle))
		Expect(p0).NotTo(Equal(p1))
		Expect(b.GetPort(h, 0)).To(Equal(p0))
		Expect(b.PortWidth(p0)).To(Equal(2))
		Expect(b.PortWidth(p1)).To(Equal(1))
	})

	It("should reject port indexes out of range", func() {
		h := b.BuildDeviceFromFactory("Dual", "A", nil)

		Expect(b.GetPort(h, 2)).To(Equal(NullHandle))
		Expect(logBuf.String()).To(ContainSubstring("port index out of range"))
	})

	It("should forward ticks", func() {
		h := b.BuildDeviceFromFactory("Dual", "A", nil)

		b.Tick(h, 10)
		b.Tick(h, 20)

		var now uint64
		Expect(b.Inspect(h, func(d device.Device) {
			now = d.Timebase()
		})).To(BeTrue())
		Expect(now).To(Equal(uint64(20)))
	})

	It("should report port status codes", func() {
		h := b.BuildDeviceFromFactory("Dual", "A", nil)
		in := b.GetPort(h, 0)
		out := b.GetPort(h, 1)

		Expect(b.PortStatus(in)).To(Equal(uint8(1)))
		Expect(b.PortStatus(out)).To(Equal(uint8(0)))

		built[0].in.SetStatus(device.StatusReady)

		Expect(b.PortStatus(in)).To(Equal(uint8(0)))
	})

	It("should read from the port handler", func() {
		h := b.BuildDeviceFromFactory("Dual", "A", nil)
		in := b.GetPort(h, 0)
		inHandler.EXPECT().
			HandleRead(gomock.Any()).
			Do(func(buf []uint32) {
				buf[0] = 0xffff0000
				buf[1] = 0
			})

		buf := []uint32{1, 1}
		b.PortReadData(in, buf)

		Expect(buf).To(Equal([]uint32{0xffff0000, 0}))
	})

	It("should write to the port handler", func() {
		h := b.BuildDeviceFromFactory("Dual", "A", nil)
		out := b.GetPort(h, 1)
		outHandler.EXPECT().HandleWrite([]uint32{42})

		b.PortWriteData(out, []uint32{42})
	})

	It("should close every port when closing the device", func() {
		h := b.BuildDeviceFromFactory("Dual", "A", nil)
		in := b.GetPort(h, 0)
		out := b.GetPort(h, 1)
		gomock.InOrder(
			inHandler.EXPECT().HandleClose(),
			outHandler.EXPECT().HandleClose(),
		)

		b.Close(h)

		Expect(b.PortStatus(in)).To(Equal(uint8(device.StatusEnd)))
		Expect(b.PortStatus(out)).To(Equal(uint8(device.StatusEnd)))
		Expect(built[0].State()).To(Equal(device.StateClosed))
	})

	It("should close a single port", func() {
		h := b.BuildDeviceFromFactory("Dual", "A", nil)
		out := b.GetPort(h, 1)
		outHandler.EXPECT().HandleClose()

		b.PortClose(out)

		Expect(b.PortStatus(out)).To(Equal(uint8(device.StatusEnd)))
		Expect(b.PortStatus(b.GetPort(h, 0))).To(Equal(uint8(device.StatusWait)))
	})

	It("should survive unknown handles", func() {
		buf := []uint32{7}

		Expect(func() {
			b.Tick(99, 1)
			b.Close(99)
			b.PortReadData(99, buf)
			b.PortWriteData(99, buf)
			b.PortClose(99)
		}).NotTo(Panic())
		Expect(b.GetPort(99, 0)).To(Equal(NullHandle))
		Expect(b.PortStatus(99)).To(Equal(uint8(device.StatusEnd)))
		Expect(b.PortWidth(99)).To(Equal(0))
		Expect(b.Inspect(99, func(device.Device) {})).To(BeFalse())
		Expect(buf).To(Equal([]uint32{7}))
		Expect(logBuf.String()).To(ContainSubstring("unknown device handle"))
		Expect(logBuf.String()).To(ContainSubstring("unknown port handle"))
	})

	It("should not treat a port handle as a device handle", func() {
		h := b.BuildDeviceFromFactory("Dual", "A", nil)
		p := b.GetPort(h, 0)

		Expect(b.GetPort(p, 0)).To(Equal(NullHandle))
		Expect(b.PortStatus(h)).To(Equal(uint8(device.StatusEnd)))
	})

	It("should attach hooks to devices and ports", func() {
		h := b.BuildDeviceFromFactory("Dual", "A", nil)
		in := b.GetPort(h, 0)
		inHandler.EXPECT().HandleRead(gomock.Any())

		b.Tick(h, 5)
		b.PortReadData(in, make([]uint32, 2))

		Expect(hookPos).To(Equal([]string{
			"Cycle Finish",
			"Cycle Start",
			"Port Read",
		}))
	})

	It("should list devices in handle order", func() {
		h1 := b.BuildDeviceFromFactory("Dual", "A", nil)
		h2 := b.BuildDeviceFromFactory("Dual", "B", nil)
		b.Tick(h2, 3)

		infos := b.Devices()

		Expect(infos).To(HaveLen(2))
		Expect(infos[0].Handle).To(Equal(h1))
		Expect(infos[0].Name).To(Equal("A"))
		Expect(infos[0].Type).To(Equal("Dual"))
		Expect(infos[1].Timebase).To(Equal(uint64(3)))
		Expect(infos[1].Ports).To(HaveLen(2))
		Expect(infos[1].Ports[0].Name).To(Equal("B.In"))
		Expect(infos[1].Ports[0].Status).To(Equal("Wait"))
		Expect(infos[1].Ports[1].Status).To(Equal("Ready"))
	})

	It("should find devices by name", func() {
		b.BuildDeviceFromFactory("Dual", "A", nil)
		h := b.BuildDeviceFromFactory("Dual", "B", nil)

		found, ok := b.FindByName("B")

		Expect(ok).To(BeTrue())
		Expect(found).To(Equal(h))

		_, ok = b.FindByName("C")
		Expect(ok).To(BeFalse())
	})
})
