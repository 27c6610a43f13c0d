// Package mqtt publishes knob and reachability events to a broker.
package mqtt

import (
	"context"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/hardware-ui/internal/config"
	"github.com/thatsimonsguy/hardware-ui/internal/events"
)

const publishTimeout = 5 * time.Second

type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// Publisher is an events.Sink backed by an MQTT broker.
type Publisher struct {
	client client
	topic  string
}

// Connect dials the broker. Reconnects are left to paho.
func Connect(cfg config.MQTT) (*Publisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	c := paho.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	log.Info().Str("broker", cfg.Broker).Str("topic", cfg.Topic).Msg("MQTT publisher connected")
	return &Publisher{client: c, topic: cfg.Topic}, nil
}

// Topic is where events of the given kind are published.
func (p *Publisher) Topic(kind events.Kind) string {
	return p.topic + "/" + string(kind)
}

func (p *Publisher) Record(ctx context.Context, ev events.Event) error {
	payload, err := FormatPayload(ev)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// reachability changes are rare and worth delivering; knob moves are not
	var qos byte
	if ev.Kind == events.KindReachability {
		qos = 1
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Kind, err)
	}
	timeout := publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return fmt.Errorf("publish %s: %w", ev.Kind, context.DeadlineExceeded)
	}

	token := p.client.Publish(p.Topic(ev.Kind), qos, false, payload)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
