package shortener

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// RecentClicksLimit is how many click IPs analytics reports.
	RecentClicksLimit = 5

	DefaultMaxAttempts = 3
)

// CreateRequest holds the parameters for shortening a URL.
type CreateRequest struct {
	OriginalURL string
	ExpiresAt   *time.Time
	CustomAlias string
}

// Service owns the short URL business rules.
type Service struct {
	repo         Repository
	generateCode CodeGenerator
	logger       *zap.Logger
	now          func() time.Time
	maxAttempts  int
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMaxAttempts sets how many codes are tried before giving up on a create.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// NewService creates a new short URL service.
func NewService(repo Repository, generator CodeGenerator, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		generateCode: generator,
		logger:       logger,
		now:          time.Now,
		maxAttempts:  DefaultMaxAttempts,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Create shortens a URL, optionally under a custom alias.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*ShortURL, error) {
	const op = "create short url"

	if strings.TrimSpace(req.OriginalURL) == "" {
		return nil, ErrInvalidURL
	}

	if req.CustomAlias != "" {
		if err := ValidateAlias(req.CustomAlias); err != nil {
			return nil, err
		}

		_, err := s.repo.FindByKey(ctx, req.CustomAlias)
		if err == nil {
			return nil, ErrAliasInUse
		}

		if !errors.Is(err, ErrNotFound) {
			return nil, s.fail(op, err, zap.String("alias", req.CustomAlias))
		}
	}

	_, err := s.repo.FindByOriginalURL(ctx, req.OriginalURL)
	if err == nil {
		return nil, ErrAlreadyShortened
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, s.fail(op, err, zap.String("originalUrl", req.OriginalURL))
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		shortURL := &ShortURL{
			ID:          uuid.New(),
			OriginalURL: req.OriginalURL,
			Code:        Code(s.generateCode()),
			CustomAlias: req.CustomAlias,
			CreatedAt:   s.now().UTC(),
			ExpiresAt:   req.ExpiresAt,
		}

		err = s.repo.Create(ctx, shortURL)
		if err == nil {
			return shortURL, nil
		}

		if !errors.Is(err, ErrCodeCollision) {
			return nil, s.fail(op, err, zap.String("originalUrl", req.OriginalURL))
		}

		s.logger.Warn("generated code already taken",
			zap.String("code", string(shortURL.Code)),
			zap.Int("attempt", attempt),
		)
	}

	return nil, s.fail(op, fmt.Errorf("no free code after %d attempts", s.maxAttempts),
		zap.String("originalUrl", req.OriginalURL))
}

// Redirect resolves key to its short URL and records a click from ipAddress.
// The returned entity reflects the incremented click count.
func (s *Service) Redirect(ctx context.Context, key, ipAddress string) (*ShortURL, error) {
	if ipAddress == "" {
		ipAddress = DefaultIPAddress
	}

	click := &ClickEvent{
		ID:        uuid.New(),
		ClickedAt: s.now().UTC(),
		IPAddress: ipAddress,
	}

	shortURL, err := s.repo.ResolveAndTrack(ctx, key, click)
	if err != nil {
		return nil, s.fail("redirect", err, zap.String("key", key))
	}

	return shortURL, nil
}

// Info returns metadata of a short URL, expired or not.
func (s *Service) Info(ctx context.Context, key string) (*Info, error) {
	shortURL, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		return nil, s.fail("get url info", err, zap.String("key", key))
	}

	return &Info{
		OriginalURL: shortURL.OriginalURL,
		ClickCount:  shortURL.ClickCount,
		CreatedAt:   shortURL.CreatedAt,
	}, nil
}

// Delete removes a short URL with its clicks and returns what was removed.
func (s *Service) Delete(ctx context.Context, key string) (*ShortURL, error) {
	const op = "delete short url"

	shortURL, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		return nil, s.fail(op, err, zap.String("key", key))
	}

	if err = s.repo.Delete(ctx, shortURL.ID); err != nil {
		return nil, s.fail(op, err, zap.String("key", key))
	}

	return shortURL, nil
}

// Analytics returns the click count and the most recent click IPs of a code.
func (s *Service) Analytics(ctx context.Context, code string) (*Analytics, error) {
	const op = "get url analytics"

	shortURL, err := s.repo.FindByCode(ctx, Code(code))
	if err != nil {
		return nil, s.fail(op, err, zap.String("code", code))
	}

	clicks, err := s.repo.RecentClicks(ctx, shortURL.ID, RecentClicksLimit)
	if err != nil {
		return nil, s.fail(op, err, zap.String("code", code))
	}

	recent := make([]string, 0, len(clicks))
	for _, click := range clicks {
		recent = append(recent, click.IPAddress)
	}

	return &Analytics{
		ClickCount:   shortURL.ClickCount,
		RecentClicks: recent,
	}, nil
}

// fail passes domain errors through and hides everything else behind ErrInternal.
func (s *Service) fail(op string, err error, fields ...zap.Field) error {
	if IsClientError(err) {
		return err
	}

	s.logger.Error(op+" failed", append(fields, zap.Error(err))...)

	return ErrInternal
}
