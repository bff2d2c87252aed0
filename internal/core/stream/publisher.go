package stream

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

type Publisher struct {
	js      jetstream.JetStream
	subject string
}

func NewPublisher(js jetstream.JetStream, subject string) *Publisher {
	return &Publisher{
		js:      js,
		subject: subject,
	}
}

// Subject returns the full subject for suffix.
func (p *Publisher) Subject(suffix string) string {
	return p.subject + "." + suffix
}

// Publish sends data to subject.suffix and waits for the stream ack. Each
// message carries a fresh id so JetStream drops client retries.
func (p *Publisher) Publish(ctx context.Context, suffix string, data []byte) error {
	subject := p.Subject(suffix)

	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(uuid.NewString())); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}

	return nil
}
