package datadog

import (
	"context"
	"testing"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/stretchr/testify/assert"

	"github.com/thatsimonsguy/hardware-ui/internal/config"
	"github.com/thatsimonsguy/hardware-ui/internal/events"
)

type metric struct {
	name  string
	value float64
	tags  []string
}

// fakeStatsd only implements the calls this package makes.
type fakeStatsd struct {
	statsd.ClientInterface
	gauges []metric
	incrs  []metric
}

func (f *fakeStatsd) Gauge(name string, value float64, tags []string, rate float64) error {
	f.gauges = append(f.gauges, metric{name, value, tags})
	return nil
}

func (f *fakeStatsd) Incr(name string, tags []string, rate float64) error {
	f.incrs = append(f.incrs, metric{name, 1, tags})
	return nil
}

func withFake(t *testing.T) *fakeStatsd {
	t.Helper()
	fake := &fakeStatsd{}
	orig := dogstatsd
	dogstatsd = fake
	t.Cleanup(func() { dogstatsd = orig })
	return fake
}

func TestSink_Volume(t *testing.T) {
	fake := withFake(t)

	Sink{}.Record(context.Background(), events.Event{Kind: events.KindVolume, Knob: "volume", Value: 64})

	assert.Equal(t, []metric{{"volume.percent", 64, nil}}, fake.gauges)
	assert.Equal(t, []metric{{"knob.events", 1, []string{"knob:volume", "kind:volume"}}}, fake.incrs)
}

func TestSink_FailedAction(t *testing.T) {
	fake := withFake(t)

	Sink{}.Record(context.Background(), events.Event{Kind: events.KindNextTrack, Knob: "next_track", Error: "timeout"})

	assert.Empty(t, fake.gauges)
	assert.Len(t, fake.incrs, 2)
	assert.Equal(t, "knob.action_errors", fake.incrs[1].name)
}

func TestSink_Reachability(t *testing.T) {
	fake := withFake(t)

	Sink{}.Record(context.Background(), events.Event{Kind: events.KindReachability, Reachable: true})
	Sink{}.Record(context.Background(), events.Event{Kind: events.KindReachability, Reachable: false})

	assert.Equal(t, []metric{{"internet.reachable", 1, nil}, {"internet.reachable", 0, nil}}, fake.gauges)
	assert.Empty(t, fake.incrs)
}

func TestDisabledMetricsAreNoops(t *testing.T) {
	orig := dogstatsd
	defer func() { dogstatsd = orig }()
	dogstatsd = nil

	InitMetrics(config.Datadog{Enabled: false})

	assert.Nil(t, dogstatsd)
	assert.NotPanics(t, func() {
		Gauge("volume.percent", 10)
		Incr("knob.events")
		Close()
	})
}
