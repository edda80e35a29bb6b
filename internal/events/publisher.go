// Package events publishes swap outcomes to NATS JetStream.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/chain-gateway/internal/metrics"
)

const streamRetention = 7 * 24 * time.Hour

// Publisher publishes swap outcome events.
type Publisher interface {
	// PublishOutcome publishes to "<prefix>.<chain>.<network>".
	PublishOutcome(ctx context.Context, event *SwapOutcomeEvent) error
	Close() error
}

type JetStreamPublisher struct {
	nc            *nats.Conn
	js            jetstream.JetStream
	stream        string
	subjectPrefix string
}

// NewPublisher connects to NATS and makes sure the stream exists.
func NewPublisher(natsURL, stream, subjectPrefix string) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("chain-gateway"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{
		nc:            nc,
		js:            js,
		stream:        stream,
		subjectPrefix: subjectPrefix,
	}
	if err := p.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	log.Info().Str("url", natsURL).Str("stream", stream).Msg("[events] NATS publisher initialized")
	return p, nil
}

func (p *JetStreamPublisher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := p.js.Stream(ctx, p.stream); err == nil {
		return nil
	}

	log.Info().Str("stream", p.stream).Msg("[events] creating JetStream stream")
	_, err := p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        p.stream,
		Description: "Swap execution outcomes",
		Subjects:    []string{p.subjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      streamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

func Subject(prefix string, event *SwapOutcomeEvent) string {
	return fmt.Sprintf("%s.%s.%s", prefix, event.Chain, event.Network)
}

func (p *JetStreamPublisher) PublishOutcome(ctx context.Context, event *SwapOutcomeEvent) error {
	data, err := sonic.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome event: %w", err)
	}

	subject := Subject(p.subjectPrefix, event)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to publish outcome: %w", err)
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()

	log.Debug().Str("subject", subject).Str("signature", event.Signature).Msg("[events] published outcome")
	return nil
}

func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			p.nc.Close()
		}
		log.Info().Msg("[events] NATS publisher closed")
	}
	return nil
}

// NoopPublisher drops every event. Used when NATS is not configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishOutcome(context.Context, *SwapOutcomeEvent) error { return nil }
func (NoopPublisher) Close() error                                             { return nil }
