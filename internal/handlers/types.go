package handlers

import "time"

// CreateShortURLRequest is the request body for creating a short URL.
type CreateShortURLRequest struct {
	Body struct {
		OriginalURL string     `doc:"The URL to shorten"                      example:"https://example.com/very/long/path" json:"originalUrl" required:"false"`
		ExpiresAt   *time.Time `doc:"Optional expiry, RFC 3339"               json:"expiresAt,omitempty"`
		CustomAlias string     `doc:"Optional alias used instead of the code" example:"promo"                              json:"customAlias,omitempty"`
	}
}

// ShortURLBody is the JSON representation of a short URL.
type ShortURLBody struct {
	ID          string     `doc:"Record identifier"                 json:"id"`
	OriginalURL string     `doc:"The original URL"                  example:"https://example.com/very/long/path" json:"originalUrl"`
	ShortURL    string     `doc:"The generated short code"          example:"a1b2c3"                             json:"shortUrl"`
	CustomAlias string     `doc:"The custom alias, if any"          json:"customAlias,omitempty"`
	Link        string     `doc:"Absolute URL that redirects"       example:"http://localhost:8888/a1b2c3"       json:"link"`
	ClickCount  int64      `doc:"Number of successful redirects"    json:"clickCount"`
	CreatedAt   time.Time  `doc:"Creation time"                     json:"createdAt"`
	ExpiresAt   *time.Time `doc:"Expiry time, absent when unending" json:"expiresAt,omitempty"`
}

// CreateShortURLResponse is the response for a successfully created short URL.
type CreateShortURLResponse struct {
	Location string `doc:"The short URL location" header:"Location"`
	Body     ShortURLBody
}

// KeyRequest addresses a short URL by code or custom alias.
type KeyRequest struct {
	ShortOrAlias string `doc:"Short code or custom alias" example:"a1b2c3" path:"shortOrAlias"`
}

// RedirectResponse sends the client on to the original URL.
type RedirectResponse struct {
	Status       int
	Location     string `header:"Location"`
	CacheControl string `header:"Cache-Control"`
}

// InfoResponse is the response for URL metadata.
type InfoResponse struct {
	Body struct {
		OriginalURL string    `json:"originalUrl"`
		ClickCount  int64     `json:"clickCount"`
		CreatedAt   time.Time `json:"createdAt"`
	}
}

// DeleteResponse confirms a deletion.
type DeleteResponse struct {
	Body struct {
		Message string `example:"Short URL or custom alias deleted successfully" json:"message"`
	}
}

// AnalyticsRequest addresses a short URL by its generated code only.
type AnalyticsRequest struct {
	ShortURL string `doc:"Generated short code" example:"a1b2c3" path:"shortUrl"`
}

// AnalyticsResponse reports clicks of a short URL.
type AnalyticsResponse struct {
	Body struct {
		ClickCount   int64    `json:"clickCount"`
		RecentClicks []string `doc:"IP addresses of the latest clicks, newest first" json:"recentClicks"`
	}
}
