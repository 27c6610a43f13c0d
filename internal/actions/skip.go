package actions

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/hardware-ui/internal/config"
)

// TrackSkipper advances the player to the next track.
type TrackSkipper interface {
	NextTrack(ctx context.Context) error
}

// NewSkipper picks the player backend named in the config.
func NewSkipper(cfg config.NextTrack) (TrackSkipper, error) {
	switch cfg.Backend {
	case config.SkipBackendHTTP:
		return &HTTPSkipper{URL: cfg.URL, Client: http.DefaultClient}, nil
	case config.SkipBackendMPD:
		return &MPDSkipper{Addr: cfg.MPDAddr, Password: cfg.MPDPassword}, nil
	default:
		return nil, fmt.Errorf("unknown next track backend %q", cfg.Backend)
	}
}

// HTTPSkipper hits the player's command URL.
type HTTPSkipper struct {
	URL    string
	Client *http.Client
}

func (s *HTTPSkipper) NextTrack(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("next track request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("player returned non-success status: %d", resp.StatusCode)
	}

	log.Debug().Str("url", s.URL).Int("status", resp.StatusCode).Msg("Next track requested")
	return nil
}

type mpdClient interface {
	Next() error
	Close() error
}

var dialMPD = func(addr, password string) (mpdClient, error) {
	if password != "" {
		return mpd.DialAuthenticated("tcp", addr, password)
	}
	return mpd.Dial("tcp", addr)
}

// MPDSkipper sends "next" to an MPD server, dialling per call.
type MPDSkipper struct {
	Addr     string
	Password string
}

func (s *MPDSkipper) NextTrack(ctx context.Context) error {
	// gompd has no context support, so the call runs aside and is abandoned on timeout
	done := make(chan error, 1)
	go func() { done <- s.next() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("mpd next: %w", ctx.Err())
	}
}

func (s *MPDSkipper) next() error {
	c, err := dialMPD(s.Addr, s.Password)
	if err != nil {
		return fmt.Errorf("failed to connect to mpd at %s: %w", s.Addr, err)
	}
	defer c.Close()

	if err := c.Next(); err != nil {
		return fmt.Errorf("mpd next failed: %w", err)
	}
	log.Debug().Str("addr", s.Addr).Msg("Next track requested")
	return nil
}
