package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/hardware-ui/internal/events"
)

const defaultBaseURL = "https://ntfy.sh"

// Client posts to an ntfy topic.
type Client struct {
	baseURL string
	topic   string
	http    *http.Client
}

// NewClient returns nil when no topic is configured.
func NewClient(topic string) *Client {
	if topic == "" {
		log.Warn().Msg("Ntfy topic not configured - notifications disabled")
		return nil
	}

	log.Info().
		Str("topic", topic).
		Msg("Ntfy notifications initialized")

	return &Client{
		baseURL: defaultBaseURL,
		topic:   topic,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Send sends a notification to ntfy.sh
func (c *Client) Send(ctx context.Context, title, message string) error {
	payload := map[string]interface{}{
		"topic":   c.topic,
		"title":   title,
		"message": message,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	// ntfy takes JSON publishes on the root URL, the topic travels in the body
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy returned non-success status: %d", resp.StatusCode)
	}

	log.Debug().
		Str("title", title).
		Int("status", resp.StatusCode).
		Msg("Notification sent successfully")

	return nil
}

// OutageNotifier watches reachability events and sends one notification when
// the connection comes back, saying how long it was gone.
type OutageNotifier struct {
	client *Client

	mu          sync.Mutex
	outageSince time.Time
}

func NewOutageNotifier(client *Client) *OutageNotifier {
	return &OutageNotifier{client: client}
}

func (n *OutageNotifier) Record(ctx context.Context, ev events.Event) error {
	if ev.Kind != events.KindReachability {
		return nil
	}

	n.mu.Lock()
	since := n.outageSince
	if !ev.Reachable {
		if since.IsZero() {
			n.outageSince = ev.Time
		}
		n.mu.Unlock()
		return nil
	}
	n.outageSince = time.Time{}
	n.mu.Unlock()

	if since.IsZero() {
		return nil
	}

	down := ev.Time.Sub(since).Round(time.Second)
	return n.client.Send(ctx, "Internet restored",
		fmt.Sprintf("Connection was down for %s (since %s)", down, since.Local().Format("15:04:05")))
}
