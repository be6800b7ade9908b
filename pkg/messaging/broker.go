package messaging

import (
	"context"
)

// Publisher defines the interface for publishing messages
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// Broker defines the interface for message brokers. Messages are JSON encoded by
// Publish and delivered raw to subscribers.
type Broker interface {
	Publisher
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
