package registry

import (
	"bytes"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/sarchlab/cosim/device"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Registry", func() {
	var (
		mockCtrl *gomock.Controller
		logBuf   *bytes.Buffer
		r        *Registry
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		logBuf = new(bytes.Buffer)
		r = New(slog.New(slog.NewTextHandler(logBuf, nil)))
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should build with the registered factory", func() {
		f := NewMockFactory(mockCtrl)
		dev := device.NewDeviceBase("X0", nil)
		f.EXPECT().Build("", []uint32{}).Return(dev, nil)

		Expect(r.RegisterFactory("X", f)).To(Succeed())

		built, err := r.Build("X", "", []uint32{})

		Expect(err).NotTo(HaveOccurred())
		Expect(built).To(BeIdenticalTo(dev))
	})

	It("should pass the argument string and data through", func() {
		f := NewMockFactory(mockCtrl)
		f.EXPECT().
			Build("name=a", []uint32{1, 2, 3}).
			Return(device.NewDeviceBase("a", nil), nil)
		r.MustRegisterFactory("X", f)

		_, err := r.Build("X", "name=a", []uint32{1, 2, 3})

		Expect(err).NotTo(HaveOccurred())
	})

	It("should report unknown types without panicking", func() {
		r.MustRegisterFactory("A", NewMockFactory(mockCtrl))
		r.MustRegisterFactory("B", NewMockFactory(mockCtrl))

		built, err := r.Build("Y", "", nil)

		Expect(built).To(BeNil())
		Expect(errors.Is(err, ErrUnknownDeviceType)).To(BeTrue())
		Expect(logBuf.String()).To(ContainSubstring("no matching factory found"))
		Expect(logBuf.String()).To(ContainSubstring("A B"))
	})

	It("should reject a duplicate name and keep the original", func() {
		original := NewMockFactory(mockCtrl)
		replacement := NewMockFactory(mockCtrl)
		dev := device.NewDeviceBase("X0", nil)
		original.EXPECT().Build(gomock.Any(), gomock.Any()).Return(dev, nil)

		Expect(r.RegisterFactory("X", original)).To(Succeed())

		err := r.RegisterFactory("X", replacement)
		Expect(errors.Is(err, ErrDuplicateFactory)).To(BeTrue())

		built, err := r.Build("X", "", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(built).To(BeIdenticalTo(dev))
	})

	It("should panic on duplicates when using MustRegisterFactory", func() {
		r.MustRegisterFactory("X", NewMockFactory(mockCtrl))

		Expect(func() {
			r.MustRegisterFactory("X", NewMockFactory(mockCtrl))
		}).To(Panic())
	})

	It("should wrap factory errors", func() {
		cause := errors.New("bad argument")
		r.MustRegisterFactory("X", FactoryFunc(
			func(string, []uint32) (device.Device, error) {
				return nil, cause
			}))

		built, err := r.Build("X", "oops", nil)

		Expect(built).To(BeNil())
		Expect(errors.Is(err, cause)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring(`"X"`))
	})

	It("should report the data words of sized factories", func() {
		f := NewMockFactory(mockCtrl)
		f.EXPECT().
			Build("", []uint32{4, 5}).
			Return(device.NewDeviceBase("s", nil), nil)
		r.MustRegisterFactory("Sized", WithDataWords(f, 2))
		r.MustRegisterFactory("Plain", NewMockFactory(mockCtrl))

		Expect(r.DataWords("Sized")).To(Equal(2))
		Expect(r.DataWords("Plain")).To(Equal(0))
		Expect(r.DataWords("Missing")).To(Equal(0))

		_, err := r.Build("Sized", "", []uint32{4, 5})
		Expect(err).NotTo(HaveOccurred())
	})

	It("should list names in order", func() {
		r.MustRegisterFactory("Ticker", NewMockFactory(mockCtrl))
		r.MustRegisterFactory("MemScanChainTest", NewMockFactory(mockCtrl))

		Expect(r.Names()).To(Equal([]string{"MemScanChainTest", "Ticker"}))
		Expect(r.Has("Ticker")).To(BeTrue())
		Expect(r.Has("Other")).To(BeFalse())
	})

	It("should run registrars in order and stop at the first error", func() {
		var calls []string
		failing := errors.New("boom")

		err := RegisterAll(r,
			func(*Registry) error { calls = append(calls, "a"); return nil },
			func(*Registry) error { calls = append(calls, "b"); return failing },
			func(*Registry) error { calls = append(calls, "c"); return nil },
		)

		Expect(err).To(MatchError(failing))
		Expect(calls).To(Equal([]string{"a", "b"}))
	})
})
