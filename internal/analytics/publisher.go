package analytics

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/shortlink/internal/messaging"
)

// Publishers bundles the typed publish functions of every analytics topic.
type Publishers struct {
	URLCreated messaging.Publish[URLCreatedEvent]
	URLClicked messaging.Publish[URLClickedEvent]
	URLDeleted messaging.Publish[URLDeletedEvent]
}

// NewPublishers binds each analytics topic to publisher.
func NewPublishers(publisher message.Publisher) Publishers {
	return Publishers{
		URLCreated: messaging.NewPublishFunc[URLCreatedEvent](publisher, TopicURLCreated),
		URLClicked: messaging.NewPublishFunc[URLClickedEvent](publisher, TopicURLClicked),
		URLDeleted: messaging.NewPublishFunc[URLDeletedEvent](publisher, TopicURLDeleted),
	}
}
