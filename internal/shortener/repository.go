package shortener

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence operations for short URLs and their clicks.
type Repository interface {
	// Create persists a new short URL. Unique violations are reported as
	// ErrCodeCollision, ErrAliasInUse or ErrAlreadyShortened.
	Create(ctx context.Context, shortURL *ShortURL) error

	// FindByKey looks a short URL up by code or alias in a single query.
	// A code match wins over an alias match. Returns ErrNotFound if absent.
	FindByKey(ctx context.Context, key string) (*ShortURL, error)
	FindByCode(ctx context.Context, code Code) (*ShortURL, error)
	FindByOriginalURL(ctx context.Context, originalURL string) (*ShortURL, error)

	// ResolveAndTrack atomically resolves key, rejects expired entries with
	// ErrExpired, increments the click count and stores click. Nothing is
	// written unless every step succeeds.
	ResolveAndTrack(ctx context.Context, key string, click *ClickEvent) (*ShortURL, error)

	// Delete removes the short URL and all its clicks.
	Delete(ctx context.Context, id uuid.UUID) error

	// RecentClicks returns up to limit clicks of a URL, newest first.
	RecentClicks(ctx context.Context, urlID uuid.UUID, limit int) ([]ClickEvent, error)
}
