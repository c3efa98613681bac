package main

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/mietevo/mietevo-backend/internal/ai"
	"github.com/mietevo/mietevo-backend/internal/analytics"
	v1 "github.com/mietevo/mietevo-backend/internal/api/v1"
	"github.com/mietevo/mietevo-backend/internal/config"
	"github.com/mietevo/mietevo-backend/internal/httpclient"
	"github.com/mietevo/mietevo-backend/internal/logger"
	"github.com/mietevo/mietevo-backend/internal/postgres"
	"github.com/mietevo/mietevo-backend/internal/ratelimit"
	"github.com/mietevo/mietevo-backend/internal/repository"
	"github.com/mietevo/mietevo-backend/internal/router"
	"github.com/mietevo/mietevo-backend/internal/s3"
	"github.com/mietevo/mietevo-backend/internal/sentry"
	"github.com/mietevo/mietevo-backend/internal/service"
	"github.com/mietevo/mietevo-backend/internal/statement"
	"github.com/mietevo/mietevo-backend/internal/types"
	"github.com/mietevo/mietevo-backend/internal/typst"
	"github.com/mietevo/mietevo-backend/internal/validator"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	app := fx.New(
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			provideLogger,

			// Monitoring
			sentry.NewSentryService,

			// HTTP client
			httpclient.NewDefaultClient,

			// Postgres
			postgres.NewPool,
			postgres.NewClient,

			// Object storage
			s3.NewService,

			// Repositories
			repository.NewQueueRepository,
			repository.NewApplicationRepository,
			repository.NewDocsRepository,

			// AI and telemetry
			ai.NewClient,
			analytics.NewService,
			ratelimit.NewFixedWindowLimiter,

			// PDF rendering
			typst.DefaultCompiler,
			statement.NewRenderer,

			// Services
			service.NewChatService,
			service.NewQueueConsumer,

			// API
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			registerAnalyticsHooks,
			startServer,
		),
	)

	app.Run()
}

func provideLogger(cfg *config.Configuration) (*logger.Logger, error) {
	return logger.NewLoggerWithLevel(cfg.Logging.Level)
}

func provideHandlers(
	cfg *config.Configuration,
	log *logger.Logger,
	renderer statement.Renderer,
	chatService service.ChatService,
	limiter ratelimit.Limiter,
	consumer service.QueueConsumer,
) router.Handlers {
	return router.Handlers{
		Export: v1.NewExportHandler(renderer, log),
		Chat:   v1.NewChatHandler(chatService, limiter, log),
		Queue:  v1.NewQueueHandler(consumer, log),
		Health: v1.NewHealthHandler(log),
	}
}

func provideRouter(
	handlers router.Handlers,
	cfg *config.Configuration,
	log *logger.Logger,
	client httpclient.Client,
) *gin.Engine {
	return router.NewRouter(handlers, cfg, log, client)
}

func registerAnalyticsHooks(lc fx.Lifecycle, telemetry analytics.Service) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			telemetry.Close()
			return nil
		},
	})
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
	case types.ModeAWSLambdaAPI:
		startAWSLambdaAPI(r)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}

func startAWSLambdaAPI(r *gin.Engine) {
	ginLambda := ginadapter.New(r)
	lambda.Start(ginLambda.ProxyWithContext)
}
