package monitoring

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/cosim/bridge"
	"github.com/sarchlab/cosim/device"
	"github.com/sarchlab/cosim/registry"
)

func get(url string) (int, []byte) {
	rsp, err := http.Get(url)
	Expect(err).NotTo(HaveOccurred())

	defer rsp.Body.Close()

	body, err := io.ReadAll(rsp.Body)
	Expect(err).NotTo(HaveOccurred())

	return rsp.StatusCode, body
}

var _ = Describe("Monitor", func() {
	var (
		b      *bridge.Bridge
		h      bridge.Handle
		server *httptest.Server
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(GinkgoWriter, nil))
		r := registry.New(logger)
		r.MustRegisterFactory("Plain", registry.FactoryFunc(
			func(arg string, _ []uint32) (device.Device, error) {
				d := device.NewDeviceBase(arg, nil)
				d.AddPort(device.PortBuilder{}.
					WithDevice(d).
					WithWidth(2).
					Build("Data"))

				return d, nil
			}))

		b = bridge.MakeBuilder().WithRegistry(r).WithLogger(logger).Build()
		h = b.BuildDeviceFromFactory("Plain", "Dev", nil)
		b.Tick(h, 7)

		m := NewMonitor(b).WithLogger(logger)
		server = httptest.NewServer(m.Handler())
	})

	AfterEach(func() {
		server.Close()
	})

	It("should list devices", func() {
		code, body := get(server.URL + "/api/list_devices")

		Expect(code).To(Equal(http.StatusOK))

		var infos []bridge.DeviceInfo
		Expect(json.Unmarshal(body, &infos)).To(Succeed())
		Expect(infos).To(HaveLen(1))
		Expect(infos[0].Handle).To(Equal(h))
		Expect(infos[0].Name).To(Equal("Dev"))
		Expect(infos[0].Timebase).To(Equal(uint64(7)))
		Expect(infos[0].Ports[0].Name).To(Equal("Dev.Data"))
	})

	It("should serialize a device by handle", func() {
		code, body := get(server.URL + "/api/device/1")

		Expect(code).To(Equal(http.StatusOK))
		Expect(json.Valid(body)).To(BeTrue())
	})

	It("should serialize a device by name", func() {
		code, body := get(server.URL + "/api/device/Dev")

		Expect(code).To(Equal(http.StatusOK))
		Expect(json.Valid(body)).To(BeTrue())
	})

	It("should report unknown devices", func() {
		code, _ := get(server.URL + "/api/device/42")
		Expect(code).To(Equal(http.StatusNotFound))

		code, _ = get(server.URL + "/api/device/Nobody")
		Expect(code).To(Equal(http.StatusNotFound))
	})

	It("should reject malformed field requests", func() {
		code, _ := get(server.URL + "/api/field/not-json")

		Expect(code).To(Equal(http.StatusBadRequest))
	})

	It("should report process resources", func() {
		code, body := get(server.URL + "/api/resource")

		Expect(code).To(Equal(http.StatusOK))

		var rsp resourceRsp
		Expect(json.Unmarshal(body, &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should reject bad profile durations", func() {
		code, _ := get(server.URL + "/api/profile?duration=soon")

		Expect(code).To(Equal(http.StatusBadRequest))
	})

	It("should collect a short profile", func() {
		code, body := get(server.URL + "/api/profile?duration=20ms")

		Expect(code).To(Equal(http.StatusOK))
		Expect(json.Valid(body)).To(BeTrue())
	})

	It("should replace low port numbers with a random port", func() {
		m := NewMonitor(b).WithPortNumber(80)

		Expect(m.portNumber).To(Equal(0))
	})
})
