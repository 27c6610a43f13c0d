package connectivity

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Prober answers whether the outside world is reachable. Every failure is
// simply "not reachable".
type Prober interface {
	Reachable(ctx context.Context, timeout time.Duration) bool
}

// HTTPProbe fetches a well-known URL.
type HTTPProbe struct {
	URL    string
	Client *http.Client
}

func NewHTTPProbe(url string) *HTTPProbe {
	return &HTTPProbe{URL: url, Client: &http.Client{}}
}

func (p *HTTPProbe) Reachable(ctx context.Context, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		log.Debug().Err(err).Str("url", p.URL).Msg("Connectivity probe failed")
		return false
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", p.URL).Msg("Connectivity probe failed")
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		log.Debug().Int("status", resp.StatusCode).Str("url", p.URL).Msg("Connectivity probe got error status")
		return false
	}
	return true
}
