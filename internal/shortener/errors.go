package shortener

import "errors"

var (
	ErrNotFound         = errors.New("short url or custom alias not found")
	ErrExpired          = errors.New("short url has expired")
	ErrInvalidURL       = errors.New("original url is required")
	ErrInvalidAlias     = errors.New("invalid custom alias")
	ErrAliasInUse       = errors.New("custom alias already in use")
	ErrAlreadyShortened = errors.New("this url has already been shortened")
	ErrInternal         = errors.New("internal error")

	// ErrCodeCollision is returned by repositories when a generated code is taken.
	// The service retries on it and never surfaces it to callers.
	ErrCodeCollision = errors.New("short code already exists")
)

// IsClientError reports whether err is a domain error safe to show to callers.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrExpired, ErrInvalidURL, ErrInvalidAlias, ErrAliasInUse, ErrAlreadyShortened,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
