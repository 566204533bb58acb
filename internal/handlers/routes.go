package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/ratelimit"
)

// RegisterRoutes registers all URL shortener routes with per-endpoint rate limit configuration.
func RegisterRoutes(api huma.API, urlHandler *URLHandler) {
	tags := []string{"URLs"}

	huma.Register(api, huma.Operation{
		OperationID:   "create-short-url",
		Method:        http.MethodPost,
		Path:          "/shorten",
		Summary:       "Create short URL",
		Description:   "Shortens a URL, optionally with an expiry and a custom alias.",
		Tags:          tags,
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 10},
					{Window: time.Hour, Max: 100},
					{Window: 24 * time.Hour, Max: 500},
				},
			},
		},
	}, urlHandler.CreateShortURL)

	huma.Register(api, huma.Operation{
		OperationID:   "redirect",
		Method:        http.MethodGet,
		Path:          "/{shortOrAlias}",
		Summary:       "Redirect to original URL",
		Description:   "Records a click and redirects to the original URL of a code or alias.",
		Tags:          tags,
		DefaultStatus: http.StatusFound,
		Errors:        []int{http.StatusNotFound, http.StatusGone},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 1000},
				},
			},
		},
	}, urlHandler.RedirectToURL)

	huma.Register(api, huma.Operation{
		OperationID: "get-url-info",
		Method:      http.MethodGet,
		Path:        "/info/{shortOrAlias}",
		Summary:     "Get URL info",
		Tags:        tags,
		Errors:      []int{http.StatusNotFound},
	}, urlHandler.GetInfo)

	huma.Register(api, huma.Operation{
		OperationID: "delete-short-url",
		Method:      http.MethodDelete,
		Path:        "/delete/{shortOrAlias}",
		Summary:     "Delete short URL",
		Description: "Deletes a short URL and all of its recorded clicks.",
		Tags:        tags,
		Errors:      []int{http.StatusNotFound},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Scope: ratelimit.ScopeWrite},
		},
	}, urlHandler.DeleteShortURL)

	huma.Register(api, huma.Operation{
		OperationID: "get-url-analytics",
		Method:      http.MethodGet,
		Path:        "/analytics/{shortUrl}",
		Summary:     "Get URL analytics",
		Description: "Returns the click count and the IP addresses of the five latest clicks.",
		Tags:        tags,
		Errors:      []int{http.StatusNotFound},
	}, urlHandler.GetAnalytics)
}
