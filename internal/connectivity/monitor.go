// Package connectivity drives the connection lamp: steady on while the
// internet is reachable, flashing while it is not.
package connectivity

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/hardware-ui/internal/config"
	"github.com/thatsimonsguy/hardware-ui/internal/events"
)

// Indicator is the lamp output. gpio.Pin satisfies it.
type Indicator interface {
	Set(on bool) error
}

type State struct {
	Reachable   bool
	Probed      bool
	LastProbe   time.Time
	IndicatorOn bool
	LastToggle  time.Time
}

type Monitor struct {
	cfg   config.Connectivity
	probe Prober
	lamp  Indicator
	sink  events.Sink

	state State
	// lampDriven is false until the first successful write
	lampDriven bool
}

func NewMonitor(cfg config.Connectivity, probe Prober, lamp Indicator, sink events.Sink) *Monitor {
	if sink == nil {
		sink = events.Discard{}
	}
	return &Monitor{cfg: cfg, probe: probe, lamp: lamp, sink: sink}
}

func (m *Monitor) State() State {
	return m.state
}

// Start drives the lamp off and starts the flash clock, so an early outage
// flashes from off with the first toggle one flash period after start.
func (m *Monitor) Start(now time.Time) {
	m.state.LastToggle = now
	m.drive(false)
}

// Step runs one cycle: probe if due, then update the lamp.
func (m *Monitor) Step(now time.Time) {
	if !m.state.Probed || !now.Before(m.state.LastProbe.Add(m.cfg.ProbeInterval())) {
		m.runProbe(now)
	}

	if m.state.Reachable {
		m.drive(true)
		return
	}

	if !now.Before(m.state.LastToggle.Add(m.cfg.FlashPeriod())) {
		m.drive(!m.state.IndicatorOn)
		m.state.LastToggle = now
	}
}

// Stop leaves the lamp dark.
func (m *Monitor) Stop() {
	if err := m.lamp.Set(false); err != nil {
		log.Error().Err(err).Msg("Failed to turn off connection lamp")
		return
	}
	m.state.IndicatorOn = false
}

func (m *Monitor) runProbe(now time.Time) {
	reachable := m.probe.Reachable(context.Background(), m.cfg.ProbeTimeout())

	changed := !m.state.Probed || reachable != m.state.Reachable
	m.state.Reachable = reachable
	m.state.Probed = true
	m.state.LastProbe = now

	if !changed {
		return
	}

	log.Info().Bool("reachable", reachable).Msg("Internet reachability changed")

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ProbeTimeout())
	defer cancel()
	m.sink.Record(ctx, events.Event{
		Time:      now,
		Kind:      events.KindReachability,
		Reachable: reachable,
	})
}

// drive writes the lamp only when its level changes.
func (m *Monitor) drive(on bool) {
	if m.lampDriven && m.state.IndicatorOn == on {
		return
	}
	if err := m.lamp.Set(on); err != nil {
		log.Error().Err(err).Bool("on", on).Msg("Failed to drive connection lamp")
		return
	}
	m.state.IndicatorOn = on
	m.lampDriven = true
}
