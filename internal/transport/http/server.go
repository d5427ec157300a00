package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"knowledge-base/internal/bootstrap"
	"knowledge-base/internal/platform/database"
	"knowledge-base/internal/platform/rabbitmq"
	"knowledge-base/internal/transport/http/handler"
	"knowledge-base/internal/transport/http/middleware"
)

type Options struct {
	GinMode        string
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxUploadBytes int64

	Documents handler.DocumentService
	Chat      handler.ChatService
	Health    *handler.HealthHandler
	Gatherer  prometheus.Gatherer
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	cfg := app.Config
	return New(Options{
		GinMode:        cfg.App.GinMode,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Documents:      app.Documents,
		Chat:           app.Chat,
		Health:         handler.NewHealthHandler(cfg.App.Name, cfg.App.Env, app.StartedAt, dependencies(app)),
		Gatherer:       app.Metrics,
	})
}

func dependencies(app *bootstrap.App) []handler.Dependency {
	deps := []handler.Dependency{
		{Name: "database", Ping: func(ctx context.Context) error { return database.Ping(ctx, app.DB) }},
		{Name: "vector_store", Ping: app.Vectors.Ping},
		{Name: "file_store", Ping: app.Files.Ping},
	}
	if app.Redis != nil {
		deps = append(deps, handler.Dependency{Name: "redis", Ping: func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}})
	}
	if app.MQConn != nil {
		deps = append(deps, handler.Dependency{Name: "rabbitmq", Ping: func(context.Context) error {
			return rabbitmq.Ping(app.MQConn)
		}})
	}
	return deps
}

func New(opts Options) *gin.Engine {
	if opts.GinMode != "" {
		gin.SetMode(opts.GinMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.CORS(opts.AllowedOrigins))

	router.GET("/", opts.Health.Root)
	router.GET("/health", opts.Health.Liveness)
	router.GET("/healthz", opts.Health.Check)
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	documentHandler := handler.NewDocumentHandler(opts.Documents, opts.MaxUploadBytes)
	chatHandler := handler.NewChatHandler(opts.Chat)
	limiter := middleware.NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)

	api := router.Group("/api")
	documentGroup := api.Group("/documents")
	documentGroup.POST("/upload", documentHandler.Upload)
	documentGroup.GET("", documentHandler.List)
	documentGroup.GET("/", documentHandler.List)
	documentGroup.DELETE("/:id", documentHandler.Delete)

	chatGroup := api.Group("/chat")
	chatGroup.POST("/query", limiter.Middleware("/api/chat/query"), chatHandler.Query)
	chatGroup.GET("/history", chatHandler.History)

	return router
}
