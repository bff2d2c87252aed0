package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

type ConsumerConfig struct {
	NatsStream   string `json:"stream"`
	NatsConsumer string `json:"consumer"`
	NatsSubject  string `json:"subject"`
}

// Consumer reads back published Singer messages, mostly for replaying a run
// into another target.
type Consumer struct {
	Consumer jetstream.Consumer
}

func NewConsumer(ctx context.Context, js jetstream.JetStream, cfg ConsumerConfig) (*Consumer, error) {
	s, err := js.Stream(ctx, cfg.NatsStream)
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}

	//nolint:exhaustruct // optional config
	consumer, err := s.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          cfg.NatsConsumer,
		Durable:       cfg.NatsConsumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		FilterSubject: cfg.NatsSubject,
	})
	if err != nil {
		return nil, fmt.Errorf("get or create consumer: %w", err)
	}

	return &Consumer{
		Consumer: consumer,
	}, nil
}

func (c *Consumer) Next() (jetstream.Msg, error) {
	return c.Consumer.Next(jetstream.FetchMaxWait(1000 * time.Millisecond))
}
