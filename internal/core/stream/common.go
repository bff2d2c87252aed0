// Package stream wraps the NATS connection and the JetStream streams the tap
// publishes Singer messages to.
package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const connectTimeout = 5 * time.Second

type NATSConnWrapper struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewNATSWrapper(url, name string) (*NATSConnWrapper, error) {
	nc, err := nats.Connect(url, nats.Name(name), nats.Timeout(connectTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to connect to JetStream: %w", err)
	}

	return &NATSConnWrapper{
		nc: nc,
		js: js,
	}, nil
}

func (n *NATSConnWrapper) JetStream() jetstream.JetStream {
	return n.js
}

// EnsureStream creates or updates the stream capturing subject.*.
func (n *NATSConnWrapper) EnsureStream(ctx context.Context, name, subject string, maxAge time.Duration) error {
	//nolint:exhaustruct // optional config
	_, err := n.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: []string{subject + ".>"},
		Storage:  jetstream.FileStorage,
		MaxAge:   maxAge,
	})
	if err != nil {
		return fmt.Errorf("create or update stream %s: %w", name, err)
	}

	return nil
}

func (n *NATSConnWrapper) Close() error {
	if err := n.nc.Drain(); err != nil {
		n.nc.Close()
		return fmt.Errorf("drain nats connection: %w", err)
	}
	return nil
}
