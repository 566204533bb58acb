package container

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/handlers"
	"github.com/serroba/shortlink/internal/health"
	"github.com/serroba/shortlink/internal/middleware"
	"github.com/serroba/shortlink/internal/ratelimit"
	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/store"
	"go.uber.org/zap"
)

// RateLimitPackage provides the policy limiter, stored in Redis unless running on memory storage.
func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*ratelimit.PolicyLimiter, error) {
		opts := do.MustInvoke[*Options](i)

		var limitStore ratelimit.Store = store.NewRateLimitMemoryStore()
		if opts.Storage != StorageMemory {
			limitStore = store.NewRedisRateLimitStore(do.MustInvoke[*RedisClient](i).Client)
		}

		return ratelimit.NewPolicyLimiter(limitStore, ratelimit.DefaultPolicy()), nil
	})
}

// HTTPPackage provides the router and the API with every route registered.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		var limitOpts []middleware.RateLimitOption
		if opts.TrustProxy {
			limitOpts = append(limitOpts, middleware.TrustForwardedHeaders())
		}

		api := humachi.New(router, huma.DefaultConfig("URL Shortener", "1.0.0"))
		api.UseMiddleware(
			middleware.RequestMeta(api),
			middleware.PolicyRateLimiter(
				api,
				do.MustInvoke[*ratelimit.PolicyLimiter](i),
				ratelimit.NewOperationScopeResolver(),
				logger,
				limitOpts...,
			),
		)

		urlHandler := handlers.NewURLHandler(
			do.MustInvoke[*shortener.Service](i),
			opts.PublicBaseURL(),
			do.MustInvoke[analytics.Publishers](i),
			logger,
		)

		handlers.RegisterRoutes(api, urlHandler)
		health.RegisterRoutes(api, healthHandler(i, opts))

		return api, nil
	})
}

func healthHandler(i *do.Injector, opts *Options) *health.Handler {
	if opts.Storage == StorageMemory {
		return health.NewHandler(nil, nil)
	}

	return health.NewHandler(
		health.NewPostgresChecker(do.MustInvoke[*PostgresPool](i).Pool),
		health.NewRedisChecker(do.MustInvoke[*RedisClient](i).Client),
	)
}
