package datadog

import (
	"context"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/hardware-ui/internal/config"
	"github.com/thatsimonsguy/hardware-ui/internal/events"
)

var dogstatsd statsd.ClientInterface
var enabled bool

func InitMetrics(cfg config.Datadog) {
	enabled = cfg.Enabled
	if !cfg.Enabled {
		log.Info().Msg("Datadog metrics disabled")
		return
	}

	client, err := statsd.New(cfg.AgentAddr)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create DogStatsD client")
		return
	}

	client.Namespace = cfg.Namespace
	client.Tags = cfg.Tags
	dogstatsd = client

	log.Info().
		Str("addr", cfg.AgentAddr).
		Str("namespace", cfg.Namespace).
		Strs("tags", cfg.Tags).
		Msg("Datadog metrics initialized")
}

func Gauge(name string, value float64, tags ...string) {
	if dogstatsd != nil {
		err := dogstatsd.Gauge(name, value, tags, 1)
		if err != nil && enabled {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to emit gauge metric")
		}
	}
}

func Incr(name string, tags ...string) {
	if dogstatsd != nil {
		err := dogstatsd.Incr(name, tags, 1)
		if err != nil && enabled {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to emit count metric")
		}
	}
}

func Close() {
	if dogstatsd != nil {
		dogstatsd.Close()
	}
}

// Sink turns events into metrics.
type Sink struct{}

func (Sink) Record(_ context.Context, ev events.Event) error {
	switch ev.Kind {
	case events.KindReachability:
		reachable := 0.0
		if ev.Reachable {
			reachable = 1
		}
		Gauge("internet.reachable", reachable)
		return nil
	case events.KindVolume:
		Gauge("volume.percent", float64(ev.Value))
	}

	tags := []string{"knob:" + ev.Knob, "kind:" + string(ev.Kind)}
	Incr("knob.events", tags...)
	if ev.Error != "" {
		Incr("knob.action_errors", tags...)
	}
	return nil
}
