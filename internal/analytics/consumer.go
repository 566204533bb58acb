package analytics

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/shortlink/internal/messaging"
	"go.uber.org/zap"
)

// NewConsumers creates one consumer per analytics topic, each feeding store.
func NewConsumers(subscriber message.Subscriber, store Store, logger *zap.Logger) []messaging.Runnable {
	return []messaging.Runnable{
		messaging.NewConsumer(subscriber, TopicURLCreated, store.SaveURLCreated, logger),
		messaging.NewConsumer(subscriber, TopicURLClicked, store.SaveURLClicked, logger),
		messaging.NewConsumer(subscriber, TopicURLDeleted, store.SaveURLDeleted, logger),
	}
}
