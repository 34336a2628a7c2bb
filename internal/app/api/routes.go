package api

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/voicebot-billing/internal/config"
	"github.com/magabrotheeeer/voicebot-billing/internal/http/handlers/billing/cancel"
	"github.com/magabrotheeeer/voicebot-billing/internal/http/handlers/billing/changeplan"
	"github.com/magabrotheeeer/voicebot-billing/internal/http/handlers/billing/checkout"
	"github.com/magabrotheeeer/voicebot-billing/internal/http/handlers/billing/portal"
	"github.com/magabrotheeeer/voicebot-billing/internal/http/handlers/billing/webhook"
	"github.com/magabrotheeeer/voicebot-billing/internal/http/handlers/embed/issue"
	"github.com/magabrotheeeer/voicebot-billing/internal/http/handlers/health"
	"github.com/magabrotheeeer/voicebot-billing/internal/http/handlers/plans/list"
	"github.com/magabrotheeeer/voicebot-billing/internal/http/handlers/usage/summary"
	"github.com/magabrotheeeer/voicebot-billing/internal/http/handlers/usage/track"
	"github.com/magabrotheeeer/voicebot-billing/internal/http/middlewarectx"

	// Регистрация спецификации OpenAPI для Swagger UI.
	_ "github.com/magabrotheeeer/voicebot-billing/docs"
)

// CheckoutService каталог, оформление и управление подпиской.
type CheckoutService interface {
	list.Service
	checkout.Service
	portal.Service
	changeplan.Service
	cancel.Service
}

// UsageService учёт расхода и сводка.
type UsageService interface {
	track.Service
	summary.Service
}

// Dependencies сервисы, которые обслуживают маршруты.
type Dependencies struct {
	Gateway    webhook.Decoder
	Reconciler webhook.Reconciler
	Recorder   UsageService
	Issuer     issue.Service
	Checkout   CheckoutService
	Tokens     middlewarectx.TokenParser
	DB         health.Pinger
	Limiter    config.Embed
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps Dependencies) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	limiter := middlewarectx.NewIPRateLimiter(deps.Limiter.RateLimit, deps.Limiter.RateBurst)

	r.Route("/api/v1", func(r chi.Router) {
		// Встраиваемый виджет: любой сайт, политика доменов проверяется в сервисе
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.EmbedCORS())
			r.Use(middlewarectx.FrameAncestors)
			r.Use(middlewarectx.RateLimitMiddleware(limiter, logger))
			r.Get("/embed/{botSlug}", issue.New(logger, deps.Issuer).ServeHTTP)
		})

		// Подпись проверяется в обработчике над исходным телом
		r.Post("/webhooks/stripe", webhook.New(logger, deps.Gateway, deps.Reconciler).ServeHTTP)

		r.Get("/plans", list.New(logger, deps.Checkout).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(deps.Tokens, logger))
			r.Post("/usage/track", track.New(logger, deps.Recorder).ServeHTTP)
			r.Get("/usage/summary", summary.New(logger, deps.Recorder).ServeHTTP)
			r.Post("/billing/checkout", checkout.New(logger, deps.Checkout).ServeHTTP)
			r.Post("/billing/portal", portal.New(logger, deps.Checkout).ServeHTTP)
			r.Put("/billing/subscription", changeplan.New(logger, deps.Checkout).ServeHTTP)
			r.Delete("/billing/subscription", cancel.New(logger, deps.Checkout).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger, deps.DB).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
