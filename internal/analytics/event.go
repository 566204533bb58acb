package analytics

import "time"

const (
	TopicURLCreated = "url.created"
	TopicURLClicked = "url.clicked"
	TopicURLDeleted = "url.deleted"
)

// URLCreatedEvent represents an event emitted when a URL is shortened.
type URLCreatedEvent struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	CustomAlias string     `json:"customAlias,omitempty"`
	OriginalURL string     `json:"originalUrl"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	ClientIP    string     `json:"clientIp"`
	UserAgent   string     `json:"userAgent"`
}

// URLClickedEvent is emitted after a redirect has been recorded.
type URLClickedEvent struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	Key        string    `json:"key"`
	ClickCount int64     `json:"clickCount"`
	ClickedAt  time.Time `json:"clickedAt"`
	ClientIP   string    `json:"clientIp"`
	UserAgent  string    `json:"userAgent"`
	Referrer   string    `json:"referrer,omitempty"`
}

// URLDeletedEvent is emitted after a short URL and its clicks were removed.
type URLDeletedEvent struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	CustomAlias string    `json:"customAlias,omitempty"`
	ClickCount  int64     `json:"clickCount"`
	DeletedAt   time.Time `json:"deletedAt"`
}
