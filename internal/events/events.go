// Package events carries what the loops did to whoever is listening: the
// sqlite journal, MQTT, Datadog and the outage notifier.
package events

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type Kind string

const (
	KindVolume       Kind = "volume"
	KindNextTrack    Kind = "next_track"
	KindReachability Kind = "reachability"
)

type Event struct {
	Time time.Time `json:"time"`
	Kind Kind      `json:"kind"`

	// knob events
	Knob    string `json:"knob,omitempty"`
	Channel int    `json:"channel"`
	Raw     int    `json:"raw"`
	Value   int    `json:"value"`

	// reachability events
	Reachable bool `json:"reachable"`

	// Error is the action failure, empty on success.
	Error string `json:"error,omitempty"`
}

// Sink receives events. Implementations must be safe for concurrent use;
// both loops record into the same sinks.
type Sink interface {
	Record(ctx context.Context, ev Event) error
}

// Fanout forwards to every sink, logging failures instead of returning them.
type Fanout []Sink

func (f Fanout) Record(ctx context.Context, ev Event) error {
	for _, s := range f {
		if err := s.Record(ctx, ev); err != nil {
			log.Warn().Err(err).Str("kind", string(ev.Kind)).Msg("Failed to record event")
		}
	}
	return nil
}

// Discard drops everything.
type Discard struct{}

func (Discard) Record(context.Context, Event) error {
	return nil
}
