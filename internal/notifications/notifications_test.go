package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/hardware-ui/internal/events"
)

var t0 = time.Date(2024, 12, 31, 20, 0, 0, 0, time.UTC)

type ntfyServer struct {
	*httptest.Server
	mu       sync.Mutex
	received []map[string]string
	status   int
}

func newNtfyServer(t *testing.T) *ntfyServer {
	s := &ntfyServer{status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		s.mu.Lock()
		s.received = append(s.received, body)
		status := s.status
		s.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(s.Close)
	return s
}

func testClient(srv *ntfyServer) *Client {
	c := NewClient("radio-alerts")
	c.baseURL = srv.URL
	return c
}

func TestNewClient_DisabledWithoutTopic(t *testing.T) {
	assert.Nil(t, NewClient(""))
}

func TestSend(t *testing.T) {
	srv := newNtfyServer(t)

	require.NoError(t, testClient(srv).Send(context.Background(), "Test", "hello"))

	require.Len(t, srv.received, 1)
	assert.Equal(t, map[string]string{"topic": "radio-alerts", "title": "Test", "message": "hello"}, srv.received[0])
}

func TestSend_ErrorStatus(t *testing.T) {
	srv := newNtfyServer(t)
	srv.status = http.StatusTooManyRequests

	assert.ErrorContains(t, testClient(srv).Send(context.Background(), "Test", "hello"), "429")
}

func TestOutageNotifier_NotifiesOnceOnRestore(t *testing.T) {
	srv := newNtfyServer(t)
	n := NewOutageNotifier(testClient(srv))
	ctx := context.Background()

	require.NoError(t, n.Record(ctx, events.Event{Time: t0, Kind: events.KindReachability, Reachable: true}))
	require.NoError(t, n.Record(ctx, events.Event{Time: t0.Add(time.Minute), Kind: events.KindReachability, Reachable: false}))
	require.NoError(t, n.Record(ctx, events.Event{Time: t0.Add(2 * time.Minute), Kind: events.KindVolume, Value: 20}))
	assert.Empty(t, srv.received, "nothing sent while the outage is ongoing")

	require.NoError(t, n.Record(ctx, events.Event{Time: t0.Add(4*time.Minute + 20*time.Second), Kind: events.KindReachability, Reachable: true}))
	require.Len(t, srv.received, 1)
	assert.Equal(t, "Internet restored", srv.received[0]["title"])
	assert.Contains(t, srv.received[0]["message"], "3m20s")

	require.NoError(t, n.Record(ctx, events.Event{Time: t0.Add(5 * time.Minute), Kind: events.KindReachability, Reachable: true}))
	assert.Len(t, srv.received, 1)
}

func TestOutageNotifier_OutageFromStartup(t *testing.T) {
	srv := newNtfyServer(t)
	n := NewOutageNotifier(testClient(srv))

	require.NoError(t, n.Record(context.Background(), events.Event{Time: t0, Kind: events.KindReachability, Reachable: false}))
	require.NoError(t, n.Record(context.Background(), events.Event{Time: t0.Add(30 * time.Second), Kind: events.KindReachability, Reachable: true}))

	require.Len(t, srv.received, 1)
	assert.Contains(t, srv.received[0]["message"], "30s")
}
