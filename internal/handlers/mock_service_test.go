package handlers_test

import (
	"context"
	"errors"
	"sync"

	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/messaging"
	"github.com/serroba/shortlink/internal/shortener"
)

var errMock = errors.New("mock error: connection reset")

// failingService fails every call with err.
type failingService struct {
	err error
}

func (f *failingService) Create(context.Context, shortener.CreateRequest) (*shortener.ShortURL, error) {
	return nil, f.err
}

func (f *failingService) Redirect(context.Context, string, string) (*shortener.ShortURL, error) {
	return nil, f.err
}

func (f *failingService) Info(context.Context, string) (*shortener.Info, error) {
	return nil, f.err
}

func (f *failingService) Delete(context.Context, string) (*shortener.ShortURL, error) {
	return nil, f.err
}

func (f *failingService) Analytics(context.Context, string) (*shortener.Analytics, error) {
	return nil, f.err
}

// eventRecorder captures published analytics events.
type eventRecorder struct {
	mu      sync.Mutex
	created []analytics.URLCreatedEvent
	clicked []analytics.URLClickedEvent
	deleted []analytics.URLDeletedEvent
}

func record[T any](mu *sync.Mutex, into *[]T) messaging.Publish[T] {
	return func(_ context.Context, event *T) error {
		mu.Lock()
		defer mu.Unlock()

		*into = append(*into, *event)

		return nil
	}
}

func (r *eventRecorder) publishers() analytics.Publishers {
	return analytics.Publishers{
		URLCreated: record(&r.mu, &r.created),
		URLClicked: record(&r.mu, &r.clicked),
		URLDeleted: record(&r.mu, &r.deleted),
	}
}

// errorPublish returns a publish function that always fails.
func errorPublish[T any](err error) messaging.Publish[T] {
	return func(context.Context, *T) error { return err }
}

func failingPublishers(err error) analytics.Publishers {
	return analytics.Publishers{
		URLCreated: errorPublish[analytics.URLCreatedEvent](err),
		URLClicked: errorPublish[analytics.URLClickedEvent](err),
		URLDeleted: errorPublish[analytics.URLDeletedEvent](err),
	}
}
