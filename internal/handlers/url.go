package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// DeletedMessage is returned after a successful delete.
const DeletedMessage = "Short URL or custom alias deleted successfully"

// URLService is the business API the HTTP layer drives.
type URLService interface {
	Create(ctx context.Context, req shortener.CreateRequest) (*shortener.ShortURL, error)
	Redirect(ctx context.Context, key, ipAddress string) (*shortener.ShortURL, error)
	Info(ctx context.Context, key string) (*shortener.Info, error)
	Delete(ctx context.Context, key string) (*shortener.ShortURL, error)
	Analytics(ctx context.Context, code string) (*shortener.Analytics, error)
}

// URLHandler handles URL shortening operations.
type URLHandler struct {
	service URLService
	baseURL string
	events  analytics.Publishers
	logger  *zap.Logger
	now     func() time.Time
}

// NewURLHandler creates a new URL handler.
func NewURLHandler(
	service URLService,
	baseURL string,
	events analytics.Publishers,
	logger *zap.Logger,
) *URLHandler {
	return &URLHandler{
		service: service,
		baseURL: baseURL,
		events:  events,
		logger:  logger,
		now:     time.Now,
	}
}

func (h *URLHandler) CreateShortURL(ctx context.Context, req *CreateShortURLRequest) (*CreateShortURLResponse, error) {
	shortURL, err := h.service.Create(ctx, shortener.CreateRequest{
		OriginalURL: req.Body.OriginalURL,
		ExpiresAt:   req.Body.ExpiresAt,
		CustomAlias: req.Body.CustomAlias,
	})
	if err != nil {
		return nil, toHTTPError(err)
	}

	meta := RequestMetaFromContext(ctx)
	h.publish(ctx, "url created", string(shortURL.Code), func(ctx context.Context) error {
		return h.events.URLCreated(ctx, &analytics.URLCreatedEvent{
			ID:          shortURL.ID.String(),
			Code:        string(shortURL.Code),
			CustomAlias: shortURL.CustomAlias,
			OriginalURL: shortURL.OriginalURL,
			CreatedAt:   shortURL.CreatedAt,
			ExpiresAt:   shortURL.ExpiresAt,
			ClientIP:    meta.ClientIP,
			UserAgent:   meta.UserAgent,
		})
	})

	body := h.toBody(shortURL)

	return &CreateShortURLResponse{Location: body.Link, Body: body}, nil
}

func (h *URLHandler) RedirectToURL(ctx context.Context, req *KeyRequest) (*RedirectResponse, error) {
	meta := RequestMetaFromContext(ctx)

	shortURL, err := h.service.Redirect(ctx, req.ShortOrAlias, meta.ClientIP)
	if err != nil {
		return nil, toHTTPError(err)
	}

	h.publish(ctx, "url clicked", string(shortURL.Code), func(ctx context.Context) error {
		return h.events.URLClicked(ctx, &analytics.URLClickedEvent{
			ID:         shortURL.ID.String(),
			Code:       string(shortURL.Code),
			Key:        req.ShortOrAlias,
			ClickCount: shortURL.ClickCount,
			ClickedAt:  h.now().UTC(),
			ClientIP:   meta.ClientIP,
			UserAgent:  meta.UserAgent,
			Referrer:   meta.Referrer,
		})
	})

	return &RedirectResponse{
		Status:       http.StatusFound,
		Location:     shortURL.OriginalURL,
		CacheControl: "no-store",
	}, nil
}

func (h *URLHandler) GetInfo(ctx context.Context, req *KeyRequest) (*InfoResponse, error) {
	info, err := h.service.Info(ctx, req.ShortOrAlias)
	if err != nil {
		return nil, toHTTPError(err)
	}

	resp := &InfoResponse{}
	resp.Body.OriginalURL = info.OriginalURL
	resp.Body.ClickCount = info.ClickCount
	resp.Body.CreatedAt = info.CreatedAt

	return resp, nil
}

func (h *URLHandler) DeleteShortURL(ctx context.Context, req *KeyRequest) (*DeleteResponse, error) {
	shortURL, err := h.service.Delete(ctx, req.ShortOrAlias)
	if err != nil {
		return nil, toHTTPError(err)
	}

	h.publish(ctx, "url deleted", string(shortURL.Code), func(ctx context.Context) error {
		return h.events.URLDeleted(ctx, &analytics.URLDeletedEvent{
			ID:          shortURL.ID.String(),
			Code:        string(shortURL.Code),
			CustomAlias: shortURL.CustomAlias,
			ClickCount:  shortURL.ClickCount,
			DeletedAt:   h.now().UTC(),
		})
	})

	resp := &DeleteResponse{}
	resp.Body.Message = DeletedMessage

	return resp, nil
}

func (h *URLHandler) GetAnalytics(ctx context.Context, req *AnalyticsRequest) (*AnalyticsResponse, error) {
	stats, err := h.service.Analytics(ctx, req.ShortURL)
	if err != nil {
		return nil, toHTTPError(err)
	}

	resp := &AnalyticsResponse{}
	resp.Body.ClickCount = stats.ClickCount
	resp.Body.RecentClicks = stats.RecentClicks

	return resp, nil
}

// publish sends an analytics event after the write has committed. Failures are
// logged and never reach the client.
func (h *URLHandler) publish(ctx context.Context, event, code string, send func(context.Context) error) {
	if err := send(ctx); err != nil {
		h.logger.Error("failed to publish analytics event",
			zap.String("event", event),
			zap.String("code", code),
			zap.Error(err),
		)
	}
}

func (h *URLHandler) toBody(u *shortener.ShortURL) ShortURLBody {
	return ShortURLBody{
		ID:          u.ID.String(),
		OriginalURL: u.OriginalURL,
		ShortURL:    string(u.Code),
		CustomAlias: u.CustomAlias,
		Link:        h.baseURL + "/" + string(u.Code),
		ClickCount:  u.ClickCount,
		CreatedAt:   u.CreatedAt,
		ExpiresAt:   u.ExpiresAt,
	}
}
