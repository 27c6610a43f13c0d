package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/hardware-ui/db"
	"github.com/thatsimonsguy/hardware-ui/internal/actions"
	"github.com/thatsimonsguy/hardware-ui/internal/adc"
	"github.com/thatsimonsguy/hardware-ui/internal/api"
	"github.com/thatsimonsguy/hardware-ui/internal/config"
	"github.com/thatsimonsguy/hardware-ui/internal/connectivity"
	"github.com/thatsimonsguy/hardware-ui/internal/datadog"
	"github.com/thatsimonsguy/hardware-ui/internal/events"
	"github.com/thatsimonsguy/hardware-ui/internal/gpio"
	"github.com/thatsimonsguy/hardware-ui/internal/knob"
	"github.com/thatsimonsguy/hardware-ui/internal/logging"
	"github.com/thatsimonsguy/hardware-ui/internal/mqtt"
	"github.com/thatsimonsguy/hardware-ui/internal/notifications"
	"github.com/thatsimonsguy/hardware-ui/internal/supervisor"
	"github.com/thatsimonsguy/hardware-ui/system/shutdown"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("config_file", cfg.ConfigFile).
		Str("gpio_backend", cfg.GPIOBackend).
		Int("knobs", len(cfg.Knobs)).
		Msg("Starting hardware-ui")

	datadog.InitMetrics(cfg.Datadog)

	journal, err := db.Open(cfg.JournalPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.JournalPath).Msg("Event journal unavailable")
	}
	sink, closeSinks := buildSinks(cfg, journal)

	var status *api.Server
	if journal != nil && cfg.APIPort > 0 {
		status = api.NewServer(journal, cfg.APIPort)
		go func() {
			if err := status.Start(); err != nil {
				log.Error().Err(err).Msg("Status API server stopped")
			}
		}()
	}

	chip, err := gpio.Open(cfg.GPIOBackend, cfg.GPIOChip)
	if err != nil {
		shutdown.ShutdownWithError(nil, err, "Failed to open GPIO chip")
	}
	lamp, err := gpio.RequestLamp(chip, cfg.GPIO)
	if err != nil {
		shutdown.ShutdownWithError(nil, err, "Failed to claim connection lamp", chip)
	}
	spi, err := gpio.RequestSPI(chip, cfg.GPIO)
	if err != nil {
		shutdown.ShutdownWithError(lamp, err, "Failed to claim ADC lines", lamp, chip)
	}

	skipper, err := actions.NewSkipper(cfg.NextTrack)
	if err != nil {
		shutdown.ShutdownWithError(lamp, err, "Failed to set up next track backend", spi, lamp, chip)
	}
	bindings, err := knob.BuildBindings(cfg.Knobs, actions.NewMixer(cfg.Volume), skipper)
	if err != nil {
		shutdown.ShutdownWithError(lamp, err, "Failed to bind knobs", spi, lamp, chip)
	}

	knobs := knob.NewController(adc.NewMCP3008(spi), bindings, sink, cfg.ActionTimeout())
	monitor := connectivity.NewMonitor(cfg.Connectivity, connectivity.NewHTTPProbe(cfg.Connectivity.CheckURL), lamp, sink)

	knobLoop := supervisor.NewLoop("knobs", cfg.KnobPollInterval(), knobs.Step)
	connectivityLoop := supervisor.NewLoop("connectivity", cfg.Connectivity.PollInterval(), monitor.Step).
		OnStart(monitor.Start).
		OnExit(monitor.Stop)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	runErr := supervisor.New(cfg.JoinTimeout(), knobLoop, connectivityLoop).Run(signals)
	signal.Stop(signals)

	if status != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.JoinTimeout())
		status.Shutdown(ctx)
		cancel()
	}
	closeSinks()

	if runErr != nil {
		shutdown.ShutdownWithError(lamp, runErr, "hardware-ui stopped after a fault", spi, lamp, chip)
	}
	log.Info().Msg("hardware-ui stopped")
	shutdown.Shutdown(lamp, 0, spi, lamp, chip)
}

// buildSinks wires every configured event destination. Optional ones that fail
// to come up are logged and skipped.
func buildSinks(cfg config.Config, journal *sql.DB) (events.Sink, func()) {
	var sinks events.Fanout
	var closers []func()

	if journal != nil {
		sinks = append(sinks, db.NewJournal(journal))
		closers = append(closers, func() { journal.Close() })
	}

	if cfg.MQTT.Broker != "" {
		if pub, err := mqtt.Connect(cfg.MQTT); err != nil {
			log.Warn().Err(err).Str("broker", cfg.MQTT.Broker).Msg("MQTT publishing disabled")
		} else {
			sinks = append(sinks, pub)
			closers = append(closers, func() { pub.Close() })
		}
	}

	if cfg.Datadog.Enabled {
		sinks = append(sinks, datadog.Sink{})
		closers = append(closers, datadog.Close)
	}

	if client := notifications.NewClient(cfg.NtfyTopic); client != nil {
		sinks = append(sinks, notifications.NewOutageNotifier(client))
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}
}
