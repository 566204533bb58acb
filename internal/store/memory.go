package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/serroba/shortlink/internal/shortener"
)

// MemoryStore is an in-memory implementation of shortener.Repository.
type MemoryStore struct {
	mu     sync.RWMutex
	urls   map[uuid.UUID]*shortener.ShortURL
	clicks map[uuid.UUID][]shortener.ClickEvent // url id -> clicks, oldest first
}

// NewMemoryStore creates a new in-memory URL store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		urls:   make(map[uuid.UUID]*shortener.ShortURL),
		clicks: make(map[uuid.UUID][]shortener.ClickEvent),
	}
}

func (m *MemoryStore) Create(_ context.Context, shortURL *shortener.ShortURL) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Codes and aliases share one key space.
	for _, existing := range m.urls {
		switch {
		case existing.Code == shortURL.Code,
			existing.CustomAlias != "" && existing.CustomAlias == string(shortURL.Code):
			return shortener.ErrCodeCollision
		case shortURL.CustomAlias != "" &&
			(existing.CustomAlias == shortURL.CustomAlias || string(existing.Code) == shortURL.CustomAlias):
			return shortener.ErrAliasInUse
		case existing.OriginalURL == shortURL.OriginalURL:
			return shortener.ErrAlreadyShortened
		}
	}

	stored := *shortURL
	m.urls[shortURL.ID] = &stored

	return nil
}

func (m *MemoryStore) FindByKey(_ context.Context, key string) (*shortener.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	found := m.findByKey(key)
	if found == nil {
		return nil, shortener.ErrNotFound
	}

	return copyOf(found), nil
}

func (m *MemoryStore) FindByCode(_ context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.urls {
		if u.Code == code {
			return copyOf(u), nil
		}
	}

	return nil, shortener.ErrNotFound
}

func (m *MemoryStore) FindByOriginalURL(_ context.Context, originalURL string) (*shortener.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.urls {
		if u.OriginalURL == originalURL {
			return copyOf(u), nil
		}
	}

	return nil, shortener.ErrNotFound
}

func (m *MemoryStore) ResolveAndTrack(
	_ context.Context, key string, click *shortener.ClickEvent,
) (*shortener.ShortURL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	found := m.findByKey(key)
	if found == nil {
		return nil, shortener.ErrNotFound
	}

	if found.Expired(click.ClickedAt) {
		return nil, shortener.ErrExpired
	}

	click.URLID = found.ID
	found.ClickCount++
	m.clicks[found.ID] = append(m.clicks[found.ID], *click)

	return copyOf(found), nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.urls[id]; !ok {
		return shortener.ErrNotFound
	}

	delete(m.urls, id)
	delete(m.clicks, id)

	return nil
}

func (m *MemoryStore) RecentClicks(_ context.Context, urlID uuid.UUID, limit int) ([]shortener.ClickEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.clicks[urlID]
	clicks := make([]shortener.ClickEvent, 0, len(stored))

	// Reverse insertion order so ties on ClickedAt keep the latest insert first.
	for i := len(stored) - 1; i >= 0; i-- {
		clicks = append(clicks, stored[i])
	}

	sort.SliceStable(clicks, func(i, j int) bool {
		return clicks[i].ClickedAt.After(clicks[j].ClickedAt)
	})

	if len(clicks) > limit {
		clicks = clicks[:limit]
	}

	return clicks, nil
}

// ClickCount returns how many click records are stored for a URL.
func (m *MemoryStore) ClickCount(urlID uuid.UUID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.clicks[urlID])
}

// findByKey prefers a code match over an alias match. Callers hold the lock.
func (m *MemoryStore) findByKey(key string) *shortener.ShortURL {
	var byAlias *shortener.ShortURL

	for _, u := range m.urls {
		if string(u.Code) == key {
			return u
		}

		if u.CustomAlias != "" && u.CustomAlias == key {
			byAlias = u
		}
	}

	return byAlias
}

func copyOf(u *shortener.ShortURL) *shortener.ShortURL {
	c := *u
	if u.ExpiresAt != nil {
		t := *u.ExpiresAt
		c.ExpiresAt = &t
	}

	return &c
}

// Compile-time check.
var _ shortener.Repository = (*MemoryStore)(nil)
