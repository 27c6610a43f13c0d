package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *recordingSink) Record(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func TestFanout_ForwardsToEverySinkDespiteFailures(t *testing.T) {
	failing := &recordingSink{err: errors.New("broker down")}
	ok := &recordingSink{}
	fan := Fanout{failing, ok}

	err := fan.Record(context.Background(), Event{Kind: KindVolume, Value: 50})

	assert.NoError(t, err)
	assert.Len(t, failing.events, 1)
	assert.Len(t, ok.events, 1)
	assert.Equal(t, 50, ok.events[0].Value)
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard{}.Record(context.Background(), Event{}))
}
