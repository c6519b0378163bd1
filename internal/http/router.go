// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, and the two rate-limiting tiers.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Authentication and the named rate policies applied per route group
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/leadcraft/leadcraft-backend/internal/ai"
	"github.com/leadcraft/leadcraft-backend/internal/config"
	"github.com/leadcraft/leadcraft-backend/internal/http/handlers"
	"github.com/leadcraft/leadcraft-backend/internal/http/middleware"
	"github.com/leadcraft/leadcraft-backend/internal/ratelimit"
	"github.com/leadcraft/leadcraft-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and returns nothing; all dependencies are injected.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured request logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression (journal payloads are large and repetitive)
//  7. Metrics
//  8. Edge token bucket per client IP (abuse control)
//  9. CORS and security headers
//
// Per route group, after the globals: Authenticate, then the group's named
// fixed-window policy keyed by the resolved actor.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Compress responses when the client accepts it
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Edge token bucket per client IP. Crisis turns on the socratic route
	// bypass it so the safety reply survives an exhausted bucket.
	edge := middleware.NewEdgeLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	edge.Exempt = middleware.CrisisExempt(services.ContainsCrisisLanguage)
	r.Use(edge.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "X-RateLimit-Remaining", "Retry-After"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "X-RateLimit-Remaining", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Policy windows: process-local by default, shared when Redis is set.
	var limits ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.RedisAddr != "" {
		limits = ratelimit.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	}

	// Dependency injection: services ← db / AI client
	authSvc := &services.AuthService{DB: db}
	gatewaySvc := &services.GatewayService{DB: db}
	discoverySvc := &services.DiscoveryService{DB: db}
	challengeSvc := &services.ChallengeService{DB: db}
	journalSvc := &services.JournalService{DB: db}
	coachSvc := &services.CoachService{
		Client:    ai.NewClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model, cfg.AI.Timeout),
		MaxTokens: cfg.AI.MaxTokens,
		Logger:    log.Logger,
	}

	h := handlers.New(authSvc, gatewaySvc, discoverySvc, challengeSvc, journalSvc, coachSvc)

	auth := middleware.Authenticate(authSvc)
	standard := middleware.PolicyLimit(limits, ratelimit.PolicyStandard)
	write := middleware.PolicyLimit(limits, ratelimit.PolicyWrite)
	aiLimit := middleware.PolicyLimit(limits, ratelimit.PolicyAI)

	api := groupWithPrefix(r, cfg.APIBasePath)

	// Gateway challenge
	gw := api.Group("/gateway", auth)
	{
		gw.POST("/submit", write, h.SubmitGateway)
		gw.GET("/status", standard, h.GatewayStatus)
		gw.POST("/:studentId/review", write, h.ReviewGateway)
	}

	// Discovery wall
	disc := api.Group("/discoveries", auth)
	{
		disc.POST("", write, h.CreateDiscovery)
		disc.GET("", standard, h.ListDiscoveries)
		disc.POST("/:id/vote", write, h.VoteDiscovery)
	}

	// Teacher challenges
	ch := api.Group("/challenges", auth)
	{
		ch.POST("", write, h.CreateChallenge)
		ch.GET("", standard, h.ListChallenges)
		ch.POST("/:id/respond", write, h.RespondChallenge)
		ch.GET("/:id/response", standard, h.GetChallengeResponse)
		ch.GET("/:id/responses", standard, h.ListChallengeResponses)
	}

	// Growth journal
	api.GET("/journal/:studentId", auth, standard, h.GetJournal)

	// AI coach. The socratic limiter is wrapped so a crisis turn is answered
	// even when the caller's AI window is exhausted.
	coach := api.Group("/ai", auth)
	{
		coach.POST("/brainstorm", aiLimit, h.Brainstorm)
		coach.POST("/socratic", middleware.CrisisBypass(services.ContainsCrisisLanguage, aiLimit), h.SocraticCoach)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
