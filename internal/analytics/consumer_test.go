package analytics_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingStore struct {
	mu       sync.Mutex
	created  []*analytics.URLCreatedEvent
	clicked  []*analytics.URLClickedEvent
	deleted  []*analytics.URLDeletedEvent
	clickErr error
	received chan string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{received: make(chan string, 10)}
}

func (s *recordingStore) SaveURLCreated(_ context.Context, event *analytics.URLCreatedEvent) error {
	s.mu.Lock()
	s.created = append(s.created, event)
	s.mu.Unlock()

	s.notify(analytics.TopicURLCreated)

	return nil
}

func (s *recordingStore) SaveURLClicked(_ context.Context, event *analytics.URLClickedEvent) error {
	if s.clickErr != nil {
		s.notify("error")

		return s.clickErr
	}

	s.mu.Lock()
	s.clicked = append(s.clicked, event)
	s.mu.Unlock()

	s.notify(analytics.TopicURLClicked)

	return nil
}

func (s *recordingStore) SaveURLDeleted(_ context.Context, event *analytics.URLDeletedEvent) error {
	s.mu.Lock()
	s.deleted = append(s.deleted, event)
	s.mu.Unlock()

	s.notify(analytics.TopicURLDeleted)

	return nil
}

// notify never blocks, so endless redelivery cannot wedge the consumer.
func (s *recordingStore) notify(topic string) {
	select {
	case s.received <- topic:
	default:
	}
}

func (s *recordingStore) await(t *testing.T) string {
	t.Helper()

	select {
	case topic := <-s.received:
		return topic
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")

		return ""
	}
}

func startGroup(t *testing.T, store analytics.Store) (*gochannel.GoChannel, *messaging.ConsumerGroup) {
	t.Helper()

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 10}, watermill.NopLogger{})

	group := messaging.NewConsumerGroup(pubSub, zap.NewNop())
	group.Add(analytics.NewConsumers(pubSub, store, zap.NewNop())...)

	require.NoError(t, group.Start(context.Background()))
	t.Cleanup(func() { _ = group.Shutdown() })

	return pubSub, group
}

func TestNewConsumers(t *testing.T) {
	consumers := analytics.NewConsumers(gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{}),
		newRecordingStore(), zap.NewNop())

	assert.Len(t, consumers, 3)
}

func TestConsumers_DeliverToStore(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	pubSub, _ := startGroup(t, store)
	pubs := analytics.NewPublishers(pubSub)

	require.NoError(t, pubs.URLCreated(ctx, &analytics.URLCreatedEvent{Code: "abc123", OriginalURL: "https://example.com"}))
	assert.Equal(t, analytics.TopicURLCreated, store.await(t))

	require.NoError(t, pubs.URLClicked(ctx, &analytics.URLClickedEvent{Code: "abc123", ClientIP: "127.0.0.1"}))
	assert.Equal(t, analytics.TopicURLClicked, store.await(t))

	require.NoError(t, pubs.URLDeleted(ctx, &analytics.URLDeletedEvent{Code: "abc123"}))
	assert.Equal(t, analytics.TopicURLDeleted, store.await(t))

	store.mu.Lock()
	defer store.mu.Unlock()

	require.Len(t, store.created, 1)
	assert.Equal(t, "https://example.com", store.created[0].OriginalURL)
	require.Len(t, store.clicked, 1)
	assert.Equal(t, "127.0.0.1", store.clicked[0].ClientIP)
	assert.Len(t, store.deleted, 1)
}

func TestConsumers_RedeliverOnStoreError(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	store.clickErr = errors.New("store error")
	pubSub, _ := startGroup(t, store)

	require.NoError(t, analytics.NewPublishers(pubSub).URLClicked(ctx, &analytics.URLClickedEvent{Code: "abc123"}))

	// A nacked message is resent by the pub/sub, so the handler sees it again.
	assert.Equal(t, "error", store.await(t))
	assert.Equal(t, "error", store.await(t))
}
