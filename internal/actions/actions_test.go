package actions

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/hardware-ui/internal/config"
)

func TestMixer_Args(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Volume
		percent  int
		expected []string
	}{
		{
			name:     "with sudo",
			cfg:      config.Volume{Command: "amixer", Control: "numid=1", Sudo: true},
			percent:  50,
			expected: []string{"sudo", "amixer", "cset", "numid=1", "--", "50%"},
		},
		{
			name:     "without sudo",
			cfg:      config.Volume{Command: "/usr/bin/amixer", Control: "name='PCM Playback Volume'"},
			percent:  0,
			expected: []string{"/usr/bin/amixer", "cset", "name='PCM Playback Volume'", "--", "0%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewMixer(tt.cfg).Args(tt.percent))
		})
	}
}

func TestMixer_SetVolume(t *testing.T) {
	orig := runCommand
	defer func() { runCommand = orig }()

	var gotName string
	var gotArgs []string
	runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return nil, nil
	}

	m := NewMixer(config.Volume{Command: "amixer", Control: "numid=1", Sudo: true})
	require.NoError(t, m.SetVolume(context.Background(), 73))

	assert.Equal(t, "sudo", gotName)
	assert.Equal(t, []string{"amixer", "cset", "numid=1", "--", "73%"}, gotArgs)
}

func TestMixer_SetVolumeErrors(t *testing.T) {
	orig := runCommand
	defer func() { runCommand = orig }()

	calls := 0
	runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		calls++
		return []byte("amixer: Unable to find simple control\n"), errors.New("exit status 1")
	}

	m := NewMixer(config.Volume{Command: "amixer", Control: "numid=9"})

	err := m.SetVolume(context.Background(), 40)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unable to find simple control")

	assert.Error(t, m.SetVolume(context.Background(), 101))
	assert.Equal(t, 1, calls, "out of range volume never reaches amixer")
}

func TestHTTPSkipper(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "next", r.URL.Query().Get("cmd"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := &HTTPSkipper{URL: srv.URL + "/command/?cmd=next", Client: srv.Client()}
	require.NoError(t, s.NextTrack(context.Background()))
	assert.Equal(t, int32(1), hits.Load())
}

func TestHTTPSkipper_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := &HTTPSkipper{URL: srv.URL, Client: srv.Client()}
	assert.ErrorContains(t, s.NextTrack(context.Background()), "502")
}

func TestHTTPSkipper_HonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := &HTTPSkipper{URL: srv.URL, Client: srv.Client()}
	assert.Error(t, s.NextTrack(ctx))
}

type fakeMPD struct {
	nextErr error
	next    int
	closed  bool
}

func (f *fakeMPD) Next() error {
	f.next++
	return f.nextErr
}

func (f *fakeMPD) Close() error {
	f.closed = true
	return nil
}

func TestMPDSkipper(t *testing.T) {
	orig := dialMPD
	defer func() { dialMPD = orig }()

	client := &fakeMPD{}
	var gotAddr, gotPassword string
	dialMPD = func(addr, password string) (mpdClient, error) {
		gotAddr, gotPassword = addr, password
		return client, nil
	}

	s := &MPDSkipper{Addr: "columbus:6600", Password: "hunter2"}
	require.NoError(t, s.NextTrack(context.Background()))

	assert.Equal(t, "columbus:6600", gotAddr)
	assert.Equal(t, "hunter2", gotPassword)
	assert.Equal(t, 1, client.next)
	assert.True(t, client.closed)
}

func TestMPDSkipper_Errors(t *testing.T) {
	orig := dialMPD
	defer func() { dialMPD = orig }()

	dialMPD = func(addr, password string) (mpdClient, error) {
		return nil, errors.New("connection refused")
	}
	s := &MPDSkipper{Addr: "localhost:6600"}
	assert.ErrorContains(t, s.NextTrack(context.Background()), "connection refused")

	client := &fakeMPD{nextErr: errors.New("ACK [55@0] {next} Not playing")}
	dialMPD = func(addr, password string) (mpdClient, error) { return client, nil }
	assert.ErrorContains(t, s.NextTrack(context.Background()), "Not playing")
	assert.True(t, client.closed)
}

func TestNewSkipper(t *testing.T) {
	s, err := NewSkipper(config.NextTrack{Backend: config.SkipBackendHTTP, URL: "http://columbus/command/?cmd=next"})
	require.NoError(t, err)
	assert.IsType(t, &HTTPSkipper{}, s)

	s, err = NewSkipper(config.NextTrack{Backend: config.SkipBackendMPD, MPDAddr: "localhost:6600"})
	require.NoError(t, err)
	assert.IsType(t, &MPDSkipper{}, s)

	_, err = NewSkipper(config.NextTrack{Backend: "spotify"})
	assert.Error(t, err)
}
