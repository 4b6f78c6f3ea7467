package app

import (
	"context"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/auth"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/handler"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/httpmiddleware"
)

// NewRouter builds the HTTP engine: middleware chain, /metrics served from
// gatherer, and every API route.
func (a *App) NewRouter(gatherer prometheus.Gatherer) *gin.Engine {
	cfg := a.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.RequestID())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.Metrics(a.Metrics))
	if limiter := a.limiter(); limiter != nil {
		r.Use(httpmiddleware.RateLimit(limiter))
	}
	r.Use(auth.Identify(cfg.JWTSigningKey, cfg.JWTIssuer))

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	checks := map[string]handler.Check{}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx) }
	}
	handler.New(a.Service, handler.Config{
		JWTIssuer:     cfg.JWTIssuer,
		JWTSigningKey: cfg.JWTSigningKey,
		AccessTTL:     cfg.AccessTTL,
		Checks:        checks,
	}).Register(r)
	return r
}

// limiter picks the rate limiter for RATE_LIMIT_BACKEND. A non-positive
// limit disables rate limiting.
func (a *App) limiter() httpmiddleware.Limiter {
	perMin := a.Config.RateLimitPerMin
	if perMin <= 0 {
		return nil
	}
	if a.Config.RateLimitBackend == "redis" && a.Redis != nil {
		return httpmiddleware.NewRedisWindow(a.Redis.Client, perMin)
	}
	return httpmiddleware.NewSimpleTokenBucket(perMin, perMin)
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", httpmiddleware.RequestIDHeader},
		ExposeHeaders: []string{httpmiddleware.RequestIDHeader},
		MaxAge:        24 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
