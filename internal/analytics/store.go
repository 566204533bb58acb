package analytics

import "context"

// Store defines the interface for persisting analytics events.
type Store interface {
	SaveURLCreated(ctx context.Context, event *URLCreatedEvent) error
	SaveURLClicked(ctx context.Context, event *URLClickedEvent) error
	SaveURLDeleted(ctx context.Context, event *URLDeletedEvent) error
}
