package store

import (
	"context"

	"github.com/serroba/shortlink/internal/analytics"
	"go.uber.org/zap"
)

// Noop is a no-op implementation of analytics.Store that logs events.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a new no-op analytics store.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) SaveURLCreated(_ context.Context, event *analytics.URLCreatedEvent) error {
	fields := []zap.Field{
		zap.String("code", event.Code),
		zap.String("originalUrl", event.OriginalURL),
		zap.Time("createdAt", event.CreatedAt),
	}

	if event.CustomAlias != "" {
		fields = append(fields, zap.String("customAlias", event.CustomAlias))
	}

	if event.ExpiresAt != nil {
		fields = append(fields, zap.Time("expiresAt", *event.ExpiresAt))
	}

	n.logger.Info("url created event received", fields...)

	return nil
}

func (n *Noop) SaveURLClicked(_ context.Context, event *analytics.URLClickedEvent) error {
	n.logger.Info("url clicked event received",
		zap.String("code", event.Code),
		zap.String("key", event.Key),
		zap.Int64("clickCount", event.ClickCount),
		zap.Time("clickedAt", event.ClickedAt),
		zap.String("referrer", event.Referrer),
	)

	return nil
}

func (n *Noop) SaveURLDeleted(_ context.Context, event *analytics.URLDeletedEvent) error {
	n.logger.Info("url deleted event received",
		zap.String("code", event.Code),
		zap.Int64("clickCount", event.ClickCount),
		zap.Time("deletedAt", event.DeletedAt),
	)

	return nil
}

// Compile-time check.
var _ analytics.Store = (*Noop)(nil)
