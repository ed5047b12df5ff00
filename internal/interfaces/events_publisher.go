package interfaces

import "context"

// EventPublisher emits domain events after a mutation is committed.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}
