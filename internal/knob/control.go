package knob

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/hardware-ui/internal/adc"
	"github.com/thatsimonsguy/hardware-ui/internal/config"
	"github.com/thatsimonsguy/hardware-ui/internal/events"
)

type VolumeSetter interface {
	SetVolume(ctx context.Context, percent int) error
}

type TrackSkipper interface {
	NextTrack(ctx context.Context) error
}

// Binding ties a filtered channel to the action it drives. perform returns
// the value worth recording (the volume percentage, for instance).
type Binding struct {
	Name    string
	Kind    events.Kind
	Filter  *Filter
	perform func(ctx context.Context, v adc.Sample) (int, error)
}

func VolumeBinding(name string, f *Filter, vol VolumeSetter) Binding {
	return Binding{
		Name:   name,
		Kind:   events.KindVolume,
		Filter: f,
		perform: func(ctx context.Context, v adc.Sample) (int, error) {
			percent := VolumePercent(v)
			log.Info().Str("knob", name).Int("volume", percent).Msg("Setting volume")
			return percent, vol.SetVolume(ctx, percent)
		},
	}
}

func NextTrackBinding(name string, f *Filter, skip TrackSkipper) Binding {
	return Binding{
		Name:   name,
		Kind:   events.KindNextTrack,
		Filter: f,
		perform: func(ctx context.Context, v adc.Sample) (int, error) {
			log.Info().Str("knob", name).Msg("Skipping to next track")
			return 0, skip.NextTrack(ctx)
		},
	}
}

// BuildBindings turns validated knob config into bindings, keeping order.
func BuildBindings(knobs []config.Knob, vol VolumeSetter, skip TrackSkipper) ([]Binding, error) {
	bindings := make([]Binding, 0, len(knobs))
	for _, k := range knobs {
		f := NewFilter(adc.Channel(k.Channel), k.Tolerance, k.MinInterval())
		switch k.Action {
		case config.ActionVolume:
			bindings = append(bindings, VolumeBinding(k.Name, f, vol))
		case config.ActionNextTrack:
			bindings = append(bindings, NextTrackBinding(k.Name, f, skip))
		default:
			return nil, fmt.Errorf("knob %s: unknown action %q", k.Name, k.Action)
		}
	}
	return bindings, nil
}

// VolumePercent scales a 10-bit reading onto 0..100.
func VolumePercent(v adc.Sample) int {
	percent := int(math.Round(float64(v) / 10.23))
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// Controller polls every bound knob and dispatches their actions. It is the
// only user of the ADC, so reads are always sequential.
type Controller struct {
	reader        adc.Reader
	bindings      []Binding
	sink          events.Sink
	actionTimeout time.Duration
}

func NewController(reader adc.Reader, bindings []Binding, sink events.Sink, actionTimeout time.Duration) *Controller {
	if sink == nil {
		sink = events.Discard{}
	}
	return &Controller{
		reader:        reader,
		bindings:      bindings,
		sink:          sink,
		actionTimeout: actionTimeout,
	}
}

type pending struct {
	binding *Binding
	event   Event
}

// Step runs one poll cycle: read and filter every knob, then act on whatever
// fired, in binding order.
func (c *Controller) Step(now time.Time) {
	var fired []pending

	for i := range c.bindings {
		b := &c.bindings[i]
		sample, err := c.reader.Read(b.Filter.Channel)
		if err != nil {
			log.Error().Err(err).Str("knob", b.Name).Msg("Failed to read knob position")
			continue
		}

		if ev, ok := b.Filter.Observe(sample, now); ok {
			log.Debug().
				Str("knob", b.Name).
				Int("channel", int(ev.Channel)).
				Int("value", int(ev.Value)).
				Msg("Knob moved")
			fired = append(fired, pending{binding: b, event: ev})
		}
	}

	for _, p := range fired {
		c.dispatch(now, p.binding, p.event)
	}
}

func (c *Controller) dispatch(now time.Time, b *Binding, ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), c.actionTimeout)
	value, err := b.perform(ctx, ev.Value)
	cancel()

	record := events.Event{
		Time:    now,
		Kind:    b.Kind,
		Knob:    b.Name,
		Channel: int(ev.Channel),
		Raw:     int(ev.Value),
		Value:   value,
	}
	if err != nil {
		log.Error().Err(err).Str("knob", b.Name).Msg("Knob action failed")
		record.Error = err.Error()
	}

	// a failed action still moves the reference, otherwise it would refire every cycle
	b.Filter.Acknowledge(ev.Value)

	ctx, cancel = context.WithTimeout(context.Background(), c.actionTimeout)
	defer cancel()
	c.sink.Record(ctx, record)
}
