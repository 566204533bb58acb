package ratelimit

import (
	"context"
	"time"
)

// Store records requests in sliding windows.
type Store interface {
	// Record adds a request under key and returns how many requests key saw
	// within the last window, this one included.
	Record(ctx context.Context, key string, window time.Duration) (count int64, err error)
}
