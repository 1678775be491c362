package simulation

import (
	"io"
	"log/slog"

	"github.com/rs/xid"
	"github.com/sarchlab/cosim/bridge"
	"github.com/sarchlab/cosim/config"
	"github.com/sarchlab/cosim/devices"
	"github.com/sarchlab/cosim/logging"
	"github.com/sarchlab/cosim/monitoring"
	"github.com/sarchlab/cosim/recording"
	"github.com/sarchlab/cosim/registry"
)

// Builder can be used to build a simulation.
type Builder struct {
	cfg            *config.Config
	logWriter      io.Writer
	monitorOn      bool
	outputFileName string
	registrars     []registry.Registrar
}

// MakeBuilder creates a new builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		cfg:       config.Default(),
		monitorOn: true,
	}
}

// WithConfig sets the configuration.
func (b Builder) WithConfig(cfg *config.Config) Builder {
	b.cfg = cfg
	return b
}

// WithLogWriter sends logs to w instead of the configured output.
func (b Builder) WithLogWriter(w io.Writer) Builder {
	b.logWriter = w
	return b
}

// WithoutMonitoring disables the monitoring server even if the
// configuration enables it.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithOutputFileName overrides the recording path of the configuration.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithRegistrar adds a device module that is registered in addition to the
// built-in ones.
func (b Builder) WithRegistrar(r registry.Registrar) Builder {
	registrars := make([]registry.Registrar, len(b.registrars), len(b.registrars)+1)
	copy(registrars, b.registrars)
	b.registrars = append(registrars, r)

	return b
}

// Build builds the simulation.
func (b Builder) Build() (*Simulation, error) {
	cfg := b.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		id:  xid.New().String(),
		cfg: cfg,
	}

	s.logger = b.buildLogger()

	s.registry = registry.New(s.logger)
	if err := devices.Register(s.registry, cfg.WantsDevice); err != nil {
		return nil, err
	}

	if err := registry.RegisterAll(s.registry, b.registrars...); err != nil {
		return nil, err
	}

	bb := bridge.MakeBuilder().
		WithRegistry(s.registry).
		WithLogger(s.logger)

	if logging.ParseLevel(cfg.Logging.Level) <= slog.LevelDebug {
		bb = bb.WithHook(logging.NewLogHook(s.logger))
	}

	if cfg.Recording.Enabled {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = cfg.Recording.Path
		}

		if outputPath == "" {
			outputPath = "cosim_" + s.id
		}

		s.dataRecorder = recording.New(outputPath)
		bb = bb.WithHook(recording.NewTracer(s.dataRecorder))
	}

	s.bridge = bb.Build()

	if b.monitorOn && cfg.Monitor.Enabled {
		s.monitor = monitoring.NewMonitor(s.bridge).
			WithLogger(s.logger).
			WithPortNumber(cfg.Monitor.Port)

		if cfg.Monitor.OpenBrowser {
			s.monitor.WithBrowser()
		}

		url, err := s.monitor.StartServer()
		if err != nil {
			s.Terminate()
			return nil, err
		}

		s.monitorURL = url
	}

	return s, nil
}

func (b Builder) buildLogger() *slog.Logger {
	if b.logWriter != nil {
		return logging.NewWithWriter(b.cfg.Logging, b.logWriter)
	}

	return logging.New(b.cfg.Logging)
}
