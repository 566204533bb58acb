package shortener

import (
	"time"

	"github.com/google/uuid"
)

// DefaultIPAddress is recorded for clicks whose caller address is unknown.
const DefaultIPAddress = "0.0.0.0"

// Code represents a generated short URL code.
type Code string

// ShortURL represents a shortened URL entity.
type ShortURL struct {
	ID          uuid.UUID
	OriginalURL string
	Code        Code
	CustomAlias string // empty when no alias was requested
	ClickCount  int64
	CreatedAt   time.Time
	ExpiresAt   *time.Time
}

// Expired reports whether the short URL stopped accepting redirects at now.
func (s *ShortURL) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// Matches reports whether key is the code or the alias of s.
func (s *ShortURL) Matches(key string) bool {
	return string(s.Code) == key || (s.CustomAlias != "" && s.CustomAlias == key)
}

// ClickEvent records a single successful redirect.
type ClickEvent struct {
	ID        uuid.UUID
	URLID     uuid.UUID
	ClickedAt time.Time
	IPAddress string
}

// Info is the public metadata of a short URL.
type Info struct {
	OriginalURL string
	ClickCount  int64
	CreatedAt   time.Time
}

// Analytics summarizes click activity of a short URL.
type Analytics struct {
	ClickCount   int64
	RecentClicks []string
}
