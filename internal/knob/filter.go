package knob

import (
	"time"

	"github.com/thatsimonsguy/hardware-ui/internal/adc"
)

// Event is a qualifying position change on one channel.
type Event struct {
	Channel adc.Channel
	Value   adc.Sample
}

// Filter turns a noisy sample stream into discrete change events. A larger
// tolerance suits a worn, high-resistance pot; MinInterval stops a
// continuously turned knob from flooding a slow action.
type Filter struct {
	Channel     adc.Channel
	Tolerance   int
	MinInterval time.Duration

	armed     bool
	reference adc.Sample
	lastEvent time.Time
}

func NewFilter(ch adc.Channel, tolerance int, minInterval time.Duration) *Filter {
	return &Filter{
		Channel:     ch,
		Tolerance:   tolerance,
		MinInterval: minInterval,
	}
}

// Observe feeds one sample taken at now. The first sample only sets the
// reference. The filter never moves the reference on emission; the caller
// does that through Acknowledge once it has acted.
func (f *Filter) Observe(sample adc.Sample, now time.Time) (Event, bool) {
	if !f.armed {
		f.reference = sample
		f.armed = true
		return Event{}, false
	}

	// While rate limited the reference tracks the knob, so only movement made
	// after the window closes can fire.
	if now.Before(f.lastEvent.Add(f.MinInterval)) {
		f.reference = sample
		return Event{}, false
	}

	if delta(sample, f.reference) > f.Tolerance {
		f.lastEvent = now
		return Event{Channel: f.Channel, Value: sample}, true
	}
	return Event{}, false
}

// Acknowledge makes sample the new reference.
func (f *Filter) Acknowledge(sample adc.Sample) {
	f.reference = sample
}

// Reference returns the sample events are measured against and whether one
// has been set yet.
func (f *Filter) Reference() (adc.Sample, bool) {
	return f.reference, f.armed
}

func (f *Filter) LastEvent() time.Time {
	return f.lastEvent
}

func delta(a, b adc.Sample) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}
