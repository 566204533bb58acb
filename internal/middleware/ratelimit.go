package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/ratelimit"
	"go.uber.org/zap"
)

// RateLimitOption configures PolicyRateLimiter.
type RateLimitOption func(*rateLimitConfig)

type rateLimitConfig struct {
	clientIP func(huma.Context) string
}

// TrustForwardedHeaders identifies clients by X-Forwarded-For / X-Real-IP.
// Only enable it behind a proxy that overwrites those headers; otherwise
// callers can pick a fresh identity per request.
func TrustForwardedHeaders() RateLimitOption {
	return func(c *rateLimitConfig) {
		c.clientIP = ClientIP
	}
}

// PolicyRateLimiter returns a Huma middleware that applies policy-based rate limiting.
// Clients are identified by their socket address unless TrustForwardedHeaders is set.
//
// Operations may carry a ratelimit.EndpointConfig under ratelimit.MetadataKey to
// disable limiting, pin a scope, or replace the policy with route limits.
func PolicyRateLimiter(
	api huma.API,
	limiter *ratelimit.PolicyLimiter,
	resolver ratelimit.ScopeResolver,
	logger *zap.Logger,
	opts ...RateLimitOption,
) func(ctx huma.Context, next func(huma.Context)) {
	cfg := rateLimitConfig{clientIP: PeerIP}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		endpoint := ratelimit.GetEndpointConfig(ctx)
		if endpoint != nil && endpoint.Disabled {
			next(ctx)

			return
		}

		var (
			allowed  bool
			exceeded *ratelimit.LimitExceeded
			err      error
		)

		ip := cfg.clientIP(ctx)
		key := clientKey(ip, ctx.Header("User-Agent"))
		path := operationPath(ctx)

		if endpoint != nil && len(endpoint.Limits) > 0 {
			allowed, exceeded, err = limiter.AllowRoute(ctx.Context(), key, path, endpoint.Limits)
		} else {
			allowed, exceeded, err = limiter.Allow(ctx.Context(), key, resolver.Resolve(ctx))
		}

		if err != nil {
			logger.Error("rate limit check failed", zap.String("path", path), zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error")

			return
		}

		if !allowed {
			rejectRequest(api, ctx, exceeded, path, ip, logger)

			return
		}

		next(ctx)
	}
}

// clientKey identifies a client by a hash of its IP and User-Agent.
func clientKey(ip, userAgent string) string {
	hash := sha256.Sum256([]byte(ip + "|" + userAgent))

	return hex.EncodeToString(hash[:])
}

// operationPath returns the route template, so /{shortOrAlias} is counted as one route.
func operationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ctx.URL().Path
}

func rejectRequest(
	api huma.API,
	ctx huma.Context,
	exceeded *ratelimit.LimitExceeded,
	path string,
	clientIP string,
	logger *zap.Logger,
) {
	msg := "rate limit exceeded"

	if exceeded != nil {
		scope := string(exceeded.Scope)
		if scope == "" {
			scope = "route"
		}

		msg = fmt.Sprintf("rate limit exceeded: %s scope, %d/%d requests in %s",
			scope, exceeded.Count, exceeded.Config.Max, exceeded.Config.Window)

		ctx.SetHeader("Retry-After", strconv.Itoa(int(exceeded.Config.Window.Seconds())))

		logger.Warn("rate limit exceeded",
			zap.String("path", path),
			zap.String("method", ctx.Method()),
			zap.String("scope", scope),
			zap.Int64("count", exceeded.Count),
			zap.Int64("max", exceeded.Config.Max),
			zap.Duration("window", exceeded.Config.Window),
			zap.String("client_ip", clientIP),
		)
	}

	_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, msg)
}
