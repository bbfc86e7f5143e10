package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prepwise/prepwise/config"
	"github.com/prepwise/prepwise/database"
	"github.com/prepwise/prepwise/internal/controller"
	"github.com/prepwise/prepwise/internal/logger"
	"github.com/prepwise/prepwise/internal/model"
	"github.com/prepwise/prepwise/internal/queue"
	"github.com/prepwise/prepwise/internal/repository"
	"github.com/prepwise/prepwise/internal/service"
	"github.com/prepwise/prepwise/internal/worker"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	logger.Init()

	app := fx.New(
		// Core application components
		fx.Provide(
			config.NewConfig,
			database.NewDatabase, // Provides *gorm.DB
			NewGinEngine,         // Provides *gin.Engine
		),

		// Repositories layer
		fx.Provide(
			repository.NewInterviewRepository,
			repository.NewQuestionRepository,
			repository.NewFeedbackRepository,
			repository.NewJobRepository,
			repository.NewStatsRepository,
		),

		// Queue
		fx.Provide(
			func(jobRepo repository.JobRepository) *queue.Queue {
				return queue.New(jobRepo, queue.DefaultPolicies())
			},
			func(q *queue.Queue) service.JobEnqueuer { return q },
		),

		// Services layer
		fx.Provide(
			service.NewAIProviderService,
			service.NewStorageService,
			service.NewStatsService,
			service.NewInterviewService,
			service.NewAudioService,
		),

		// Workers
		fx.Provide(worker.NewHandlers),

		// API controllers layer
		fx.Provide(
			controller.NewInterviewController,
			controller.NewAudioController,
			controller.NewStatsController,
		),

		fx.Invoke(AutoMigrateDB),
		fx.Invoke(StartWorkerPool),
		fx.Invoke(RegisterRoutesAndStartServer),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewGinEngine() *gin.Engine {
	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages the HTTP
// server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	interviewCtrl *controller.InterviewController,
	audioCtrl *controller.AudioController,
	statsCtrl *controller.StatsController,
) {
	apiV1 := router.Group("/api/v1")
	interviewCtrl.RegisterRoutes(apiV1)
	audioCtrl.RegisterRoutes(apiV1)
	statsCtrl.RegisterRoutes(apiV1)

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Interview API server starting on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

// StartWorkerPool registers the job handlers and ties the worker pools to the
// application lifecycle.
func StartWorkerPool(lc fx.Lifecycle, q *queue.Queue, handlers *worker.Handlers) {
	handlers.Register(q)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			q.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			q.Stop()
			return nil
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.Interview{},
		&model.Question{},
		&model.InterviewFeedback{},
		&model.Job{},
		&model.UserStat{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
