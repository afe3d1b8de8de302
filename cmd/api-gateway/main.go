package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/dos-platform/tutor-api/api/swagger"
	"github.com/dos-platform/tutor-api/internal/agent"
	"github.com/dos-platform/tutor-api/internal/handler"
	"github.com/dos-platform/tutor-api/internal/middleware"
	"github.com/dos-platform/tutor-api/internal/repository"
	"github.com/dos-platform/tutor-api/internal/service"
	"github.com/dos-platform/tutor-api/pkg/cache"
	"github.com/dos-platform/tutor-api/pkg/config"
	"github.com/dos-platform/tutor-api/pkg/database"
	"github.com/dos-platform/tutor-api/pkg/logger"
	corsmiddleware "github.com/dos-platform/tutor-api/pkg/middleware/cors"
	reqidmiddleware "github.com/dos-platform/tutor-api/pkg/middleware/requestid"
	"github.com/dos-platform/tutor-api/pkg/openai"
	"github.com/dos-platform/tutor-api/pkg/poll"
	"github.com/dos-platform/tutor-api/pkg/realtime"
)

// @title DoS Tutor API
// @version 0.1.0
// @description Voice tutoring backend: sessions, quota, retrieval and parent links
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.RunMigrations {
		if err := database.Migrate(ctx, db); err != nil {
			logr.Sugar().Fatalw("failed to apply migrations", "error", err)
		}
		if version, err := database.Version(ctx, db); err == nil {
			logr.Sugar().Infow("database schema ready", "version", version)
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, reference cache disabled", "error", err)
		redisClient = nil
	}

	openaiClient := openai.New(cfg.OpenAI, logr)
	rooms := realtime.NewClient(cfg.Realtime, logr)

	// Repositories.
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	profileRepo := repository.NewProfileRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	parentLinkRepo := repository.NewParentLinkRepository(db)
	enrolmentRepo := repository.NewEnrolmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	courses := repository.NewCachedCourseReader(courseRepo, cacheRepo, cfg.Agent.ReferenceCacheTTL)
	chunkRepo := repository.NewChunkRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	transcriptRepo := repository.NewTranscriptRepository(db)
	summaryRepo := repository.NewSummaryRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	billingRepo := repository.NewBillingRepository(db)
	restrictionRepo := repository.NewRestrictionRepository(db)
	personaRepo := repository.NewPersonaRepository(db)

	// Services.
	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(cfg.Auth)
	quotaService := service.NewQuotaService(billingRepo, parentLinkRepo, sessionRepo, cfg.Quota.FreeTierMinutes, logr)
	retrievalService := service.NewRetrievalService(openaiClient, chunkRepo, cfg.Retrieval.TopK, cfg.Retrieval.Timeout, logr)
	insightService := service.NewInsightService(openaiClient, cfg.OpenAI.SummaryModel, logr)
	parentLinkService := service.NewParentLinkService(parentLinkRepo, studentRepo, logr)

	runner := agent.NewRunner(rooms, retrievalService, transcriptRepo.Upsert, agent.Config{
		SilenceNudgeAfter: cfg.Agent.SilenceNudgeAfter,
		WatchdogInterval:  cfg.Agent.WatchdogInterval,
	}, logr)
	launcher := service.NewAgentLauncher(runner, cfg.Agent.Workers, logr)
	launcher.Start(ctx)
	defer launcher.Stop()

	sessionService := service.NewSessionService(service.SessionServiceDeps{
		Sessions:     sessionRepo,
		Courses:      courses,
		Profiles:     profileRepo,
		Students:     studentRepo,
		Enrolments:   enrolmentRepo,
		Restrictions: restrictionRepo,
		Quota:        quotaService,
		Transcripts:  transcriptRepo,
		Summaries:    summaryRepo,
		Progress:     progressRepo,
		Personas:     personaRepo,
		Insights:     insightService,
		Rooms:        rooms,
		Launcher:     launcher,
		TranscriptPoll: poll.Policy{
			MaxAttempts: cfg.Agent.TranscriptAttempts,
			Delay:       cfg.Agent.TranscriptDelay,
		},
		Logger: logr,
	})

	// Handlers.
	metricsHandler := handler.NewMetricsHandler(metricsService)
	sessionHandler := handler.NewSessionHandler(sessionService, metricsService)
	quotaHandler := handler.NewQuotaHandler(quotaService)
	parentHandler := handler.NewParentHandler(parentLinkService)
	retrievalHandler := handler.NewRetrievalHandler(retrievalService, metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	authed := api.Group("")
	authed.Use(middleware.Auth(authService))
	{
		authed.POST("/sessions", sessionHandler.Create)
		authed.GET("/sessions", sessionHandler.List)
		authed.GET("/sessions/:id", sessionHandler.Detail)
		authed.POST("/sessions/:id/start-agent", sessionHandler.StartAgent)
		authed.POST("/sessions/:id/end", sessionHandler.End)

		authed.GET("/quota", quotaHandler.Check)

		authed.POST("/parent/link-code", parentHandler.GenerateInviteCode)
		authed.POST("/parent/links", parentHandler.RedeemInviteCode)
	}

	internal := api.Group("")
	internal.Use(middleware.InternalKey(authService))
	{
		internal.GET("/retrieval", retrievalHandler.Search)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
