// Package simulation assembles the services a cosimulation host needs: the
// logger, the device registry, the bridge, and the optional recorder and
// monitor.
package simulation

import (
	"context"
	"log/slog"
	"time"

	"github.com/sarchlab/cosim/bridge"
	"github.com/sarchlab/cosim/config"
	"github.com/sarchlab/cosim/monitoring"
	"github.com/sarchlab/cosim/recording"
	"github.com/sarchlab/cosim/registry"
)

// A Simulation holds the services of one cosimulation process.
type Simulation struct {
	id  string
	cfg *config.Config

	logger       *slog.Logger
	registry     *registry.Registry
	bridge       *bridge.Bridge
	dataRecorder recording.DataRecorder
	monitor      *monitoring.Monitor
	monitorURL   string
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Config returns the configuration the simulation was built with.
func (s *Simulation) Config() *config.Config {
	return s.cfg
}

// Logger returns the process logger.
func (s *Simulation) Logger() *slog.Logger {
	return s.logger
}

// Registry returns the device registry.
func (s *Simulation) Registry() *registry.Registry {
	return s.registry
}

// Bridge returns the handle table exposed to the simulator.
func (s *Simulation) Bridge() *bridge.Bridge {
	return s.bridge
}

// DataRecorder returns the recorder, or nil when recording is off.
func (s *Simulation) DataRecorder() recording.DataRecorder {
	return s.dataRecorder
}

// Monitor returns the monitor, or nil when monitoring is off.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorURL returns the address of the monitoring server, if any.
func (s *Simulation) MonitorURL() string {
	return s.monitorURL
}

// Terminate stops the monitor and flushes and closes the recorder.
func (s *Simulation) Terminate() {
	if s.monitor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if err := s.monitor.StopServer(ctx); err != nil {
			s.logger.Warn("cannot stop monitoring server", "error", err)
		}

		s.monitor = nil
	}

	if s.dataRecorder != nil {
		if err := s.dataRecorder.Close(); err != nil {
			s.logger.Warn("cannot close recording", "error", err)
		}
	}
}
