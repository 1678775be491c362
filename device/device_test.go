package device

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/cosim/hooking"
	"go.uber.org/mock/gomock"
)

type record struct {
	hook string
	time uint64
}

type recordingModel struct {
	dev     *DeviceBase
	records []record
}

func (m *recordingModel) add(hook string) {
	m.records = append(m.records, record{hook: hook, time: m.dev.Timebase()})
}

func (m *recordingModel) CycleFinish() { m.add("finish") }
func (m *recordingModel) CycleStart()  { m.add("start") }
func (m *recordingModel) PreClose()    { m.add("preClose") }
func (m *recordingModel) PostClose()   { m.add("postClose") }

var _ = Describe("DeviceBase", func() {
	var (
		mockCtrl *gomock.Controller
		model    *MockModel
		dev      *DeviceBase
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		model = NewMockModel(mockCtrl)
		dev = NewDeviceBase("Dev", model)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should start open at time zero", func() {
		Expect(dev.Name()).To(Equal("Dev"))
		Expect(dev.Timebase()).To(Equal(uint64(0)))
		Expect(dev.State()).To(Equal(StateOpen))
		Expect(dev.NumPorts()).To(Equal(0))
	})

	It("should follow the ticked time", func() {
		model.EXPECT().CycleFinish().AnyTimes()
		model.EXPECT().CycleStart().AnyTimes()

		for _, t := range []uint64{0, 5, 5, 10, 1000} {
			dev.Tick(t)
			Expect(dev.Timebase()).To(Equal(t))
		}
	})

	It("should finish before start on every tick", func() {
		gomock.InOrder(
			model.EXPECT().CycleFinish(),
			model.EXPECT().CycleStart(),
			model.EXPECT().CycleFinish(),
			model.EXPECT().CycleStart(),
		)

		dev.Tick(1)
		dev.Tick(2)
	})

	It("should observe the old time in finish and the new time in start", func() {
		m := &recordingModel{}
		d := NewDeviceBase("Recorder", m)
		m.dev = d

		d.Tick(10)
		d.Tick(20)
		d.Tick(30)

		Expect(m.records).To(Equal([]record{
			{"finish", 0}, {"start", 10},
			{"finish", 10}, {"start", 20},
			{"finish", 20}, {"start", 30},
		}))
	})

	It("should fire cycle hooks with the matching time", func() {
		model.EXPECT().CycleFinish().AnyTimes()
		model.EXPECT().CycleStart().AnyTimes()

		var seen []record
		dev.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			seen = append(seen, record{ctx.Pos.Name, ctx.Now})
		}))

		dev.Tick(4)
		dev.Tick(8)

		Expect(seen).To(Equal([]record{
			{HookPosCycleFinish.Name, 0}, {HookPosCycleStart.Name, 4},
			{HookPosCycleFinish.Name, 4}, {HookPosCycleStart.Name, 8},
		}))
	})

	It("should return ports by index", func() {
		p0 := PortBuilder{}.WithDevice(dev).Build("P0")
		p1 := PortBuilder{}.WithDevice(dev).Build("P1")

		Expect(dev.AddPort(p0)).To(Equal(uint8(0)))
		Expect(dev.AddPort(p1)).To(Equal(uint8(1)))

		for i := 0; i < 3; i++ {
			Expect(dev.GetPort(0)).To(BeIdenticalTo(p0))
			Expect(dev.GetPort(1)).To(BeIdenticalTo(p1))
		}
		Expect(dev.NumPorts()).To(Equal(2))
		Expect(dev.Ports()).To(Equal([]Port{p0, p1}))
	})

	It("should not allow adding ports after the first tick", func() {
		model.EXPECT().CycleFinish()
		model.EXPECT().CycleStart()

		dev.Tick(1)

		p := PortBuilder{}.WithDevice(dev).Build("Late")
		Expect(func() { dev.AddPort(p) }).To(Panic())
	})

	It("should not allow adding nil ports", func() {
		Expect(func() { dev.AddPort(nil) }).To(Panic())
	})

	It("should close every port once, in addition order", func() {
		h0 := NewMockPortHandler(mockCtrl)
		h1 := NewMockPortHandler(mockCtrl)
		p0 := PortBuilder{}.WithDevice(dev).WithHandler(h0).Build("P0")
		p1 := PortBuilder{}.WithDevice(dev).WithHandler(h1).Build("P1")
		dev.AddPort(p0)
		dev.AddPort(p1)

		gomock.InOrder(
			model.EXPECT().PreClose(),
			h0.EXPECT().HandleClose().Times(1),
			h1.EXPECT().HandleClose().Times(1),
			model.EXPECT().PostClose(),
		)

		dev.Close()

		Expect(dev.State()).To(Equal(StateClosed))
		Expect(p0.Status()).To(Equal(StatusEnd))
		Expect(p1.Status()).To(Equal(StatusEnd))
	})

	It("should ignore a second close", func() {
		model.EXPECT().PreClose().Times(1)
		model.EXPECT().PostClose().Times(1)

		dev.Close()
		dev.Close()

		Expect(dev.State()).To(Equal(StateClosed))
	})

	It("should ignore ticks after close", func() {
		model.EXPECT().PreClose()
		model.EXPECT().PostClose()

		dev.Close()
		dev.Tick(100)

		Expect(dev.Timebase()).To(Equal(uint64(0)))
	})

	It("should report closing while the ports are closed", func() {
		var states []LifecycleState
		h := NewMockPortHandler(mockCtrl)
		h.EXPECT().HandleClose().Do(func() {
			states = append(states, dev.State())
		})
		dev.AddPort(PortBuilder{}.WithDevice(dev).WithHandler(h).Build("P"))

		model.EXPECT().PreClose()
		model.EXPECT().PostClose()

		dev.Close()

		Expect(states).To(Equal([]LifecycleState{StateClosing}))
	})
})
