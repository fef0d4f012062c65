package messaging

import "context"

// Broker publishes change events to subscribers. The schedule calendar UI
// listens on entity channels to refresh views when another writer mutates
// the same tables.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Ping(ctx context.Context) error
	Close() error
}
