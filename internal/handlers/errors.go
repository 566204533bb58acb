package handlers

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/shortener"
)

// toHTTPError maps domain errors onto status codes. Anything unrecognized is
// reported as an opaque 500; the service has already logged the cause.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, shortener.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, shortener.ErrExpired):
		return huma.NewError(http.StatusGone, err.Error())
	case shortener.IsClientError(err):
		return huma.Error400BadRequest(err.Error())
	default:
		return huma.Error500InternalServerError("internal server error")
	}
}
