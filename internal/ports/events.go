package ports

import "context"

// EventPublisher fans committed game events out to observers.
type EventPublisher interface {
	Publish(ctx context.Context, gameID string, kind string, payload interface{}) error
}
