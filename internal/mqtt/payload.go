package mqtt

import (
	"encoding/json"
	"time"

	"github.com/thatsimonsguy/hardware-ui/internal/events"
)

// Payload is the JSON published for every event.
type Payload struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Knob      string `json:"knob,omitempty"`
	Channel   *int   `json:"channel,omitempty"`
	Raw       *int   `json:"raw,omitempty"`
	Volume    *int   `json:"volume,omitempty"`
	Reachable *bool  `json:"reachable,omitempty"`
	Error     string `json:"error,omitempty"`
}

// FormatPayload builds the payload for an event. Only the fields relevant to
// the event kind are set.
func FormatPayload(ev events.Event) ([]byte, error) {
	p := Payload{
		Event:     string(ev.Kind),
		Timestamp: ev.Time.UTC().Format(time.RFC3339Nano),
		Error:     ev.Error,
	}

	switch ev.Kind {
	case events.KindReachability:
		p.Reachable = &ev.Reachable
	case events.KindVolume:
		p.Knob = ev.Knob
		p.Channel, p.Raw, p.Volume = &ev.Channel, &ev.Raw, &ev.Value
	default:
		p.Knob = ev.Knob
		p.Channel, p.Raw = &ev.Channel, &ev.Raw
	}

	return json.Marshal(p)
}
