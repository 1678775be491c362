// Package monitoring serves a JSON view of the devices behind a bridge and of
// the host process over HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/sarchlab/cosim/bridge"
	"github.com/sarchlab/cosim/device"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// DeviceSource provides the devices to monitor. *bridge.Bridge implements
// it.
type DeviceSource interface {
	Devices() []bridge.DeviceInfo
	Inspect(h bridge.Handle, fn func(d device.Device)) bool
	FindByName(name string) (bridge.Handle, bool)
}

// Monitor turns a running cosimulation into an HTTP server that external
// tools can query.
type Monitor struct {
	source      DeviceSource
	logger      *slog.Logger
	portNumber  int
	openBrowser bool

	server   *http.Server
	listener net.Listener
}

// NewMonitor creates a new Monitor that reads devices from source.
func NewMonitor(source DeviceSource) *Monitor {
	return &Monitor{
		source: source,
		logger: slog.Default(),
	}
}

// WithLogger sets the logger.
func (m *Monitor) WithLogger(logger *slog.Logger) *Monitor {
	m.logger = logger
	return m
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// replaced by a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.Warn("monitoring port not allowed, using a random port",
			"port", portNumber)

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes StartServer open the monitor page in a browser.
func (m *Monitor) WithBrowser() *Monitor {
	m.openBrowser = true
	return m
}

// Handler returns the router serving the monitoring API.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/list_devices", m.listDevices)
	r.HandleFunc("/api/device/{id}", m.deviceDetails)
	r.HandleFunc("/api/field/{json}", m.fieldValue)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts serving in the background and returns the URL of the
// server.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	m.listener = listener
	m.server = &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	m.logger.Info("monitoring cosimulation", "url", url)

	go func() {
		err := m.server.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			m.logger.Error("monitoring server stopped", "error", err)
		}
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url + "/api/list_devices"); err != nil {
			m.logger.Warn("cannot open browser", "error", err)
		}
	}

	return url, nil
}

// StopServer shuts the server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) listDevices(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, m.source.Devices())
}

func (m *Monitor) resolve(id string) (bridge.Handle, bool) {
	if n, err := strconv.ParseUint(id, 10, 64); err == nil {
		return bridge.Handle(n), true
	}

	return m.source.FindByName(id)
}

func (m *Monitor) deviceDetails(w http.ResponseWriter, r *http.Request) {
	m.serializeDevice(w, mux.Vars(r)["id"], nil)
}

type fieldReq struct {
	Device    string `json:"device,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) fieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.serializeDevice(w, req.Device, strings.Split(req.FieldName, "."))
}

func (m *Monitor) serializeDevice(
	w http.ResponseWriter,
	id string,
	entryPoint []string,
) {
	h, ok := m.resolve(id)
	if !ok {
		http.Error(w, "Device not found", http.StatusNotFound)
		return
	}

	buf := new(bytes.Buffer)

	var err error

	found := m.source.Inspect(h, func(d device.Device) {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(d)
		serializer.SetMaxDepth(1)

		if entryPoint != nil {
			if err = serializer.SetEntryPoint(entryPoint); err != nil {
				return
			}
		}

		err = serializer.Serialize(buf)
	})

	if !found {
		http.Error(w, "Device not found", http.StatusNotFound)
		return
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	m.write(w, buf.Bytes())
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

const defaultProfileDuration = time.Second

func (m *Monitor) collectProfile(w http.ResponseWriter, r *http.Request) {
	duration := defaultProfileDuration

	if s := r.URL.Query().Get("duration"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		duration = d
	}

	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(duration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	m.write(w, data)
}

func (m *Monitor) write(w http.ResponseWriter, data []byte) {
	if _, err := w.Write(data); err != nil {
		m.logger.Warn("cannot write monitoring response", "error", err)
	}
}
