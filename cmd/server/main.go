package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"

	config "github.com/postpilotapp/postpilot/configs"
	"github.com/postpilotapp/postpilot/internal/ai"
	"github.com/postpilotapp/postpilot/internal/api/handlers"
	"github.com/postpilotapp/postpilot/internal/api/middleware"
	"github.com/postpilotapp/postpilot/internal/cache"
	job "github.com/postpilotapp/postpilot/internal/jobs"
	"github.com/postpilotapp/postpilot/internal/moderation"
	"github.com/postpilotapp/postpilot/internal/queue"
	"github.com/postpilotapp/postpilot/internal/ratelimit"
	"github.com/postpilotapp/postpilot/internal/repository"
	"github.com/postpilotapp/postpilot/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer redisClient.Close()

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	asynqClient := asynq.NewClient(redisConn)
	defer asynqClient.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	queueRepo := repository.NewQueueRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	generationRepo := repository.NewGenerationRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	ruleExecutionRepo := repository.NewRuleExecutionRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	aiClient := ai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey)
	contentCache := cache.New(redisClient, time.Duration(cfg.CacheTTLMinutes)*time.Minute)
	limiter := ratelimit.New(redisClient, cfg.GenerationQuota, time.Hour)
	moderator := moderation.New(aiClient, cfg.AI.ModerationThreshold)

	mediaService := service.NewMediaService(cfg, mediaAssetRepo)
	generationService := service.NewGenerationService(cfg, aiClient, contentCache, limiter, moderator, mediaService, generationRepo, userRepo)
	postService := service.NewPostService(db, postRepo, queueRepo, socialAccountRepo)
	accountService := service.NewAccountService(socialAccountRepo)
	automationService := service.NewAutomationService(cfg, db, ruleRepo, ruleExecutionRepo, postRepo, socialAccountRepo, analyticsRepo, generationService, nil)

	authMiddleware := middleware.NewAuthMiddleware(cfg)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	generate := handlers.NewGenerateHandler(generationService, generationRepo)
	api.Post("/generate", generate.Generate)
	api.Get("/generate/history", generate.History)

	post := handlers.NewPostHandler(postService)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/status", post.PostStatus)
	api.Post("/posts/archive", post.ArchivePost)

	account := handlers.NewAccountHandler(accountService)
	api.Get("/accounts", account.ListAccounts)
	api.Post("/accounts/remove", account.RemoveAccount)

	rule := handlers.NewRuleHandler(ruleRepo, ruleExecutionRepo, automationService)
	api.Post("/rules/create", rule.CreateRule)
	api.Post("/rules/run", rule.RunRule)
	api.Get("/rules/executions", rule.ListExecutions)

	// cron jobs
	dispatcherJob := job.NewDispatcherJob(queueRepo, asynqClient, cfg.QueueBatchSize)
	analyticsJob := job.NewAnalyticsJob(cfg, postRepo, queueRepo, socialAccountRepo, analyticsRepo, nil)
	tokenRefreshJob := job.NewTokenRefreshJob(cfg, socialAccountRepo)
	ruleSweepJob := job.NewRuleSweepJob(ruleRepo, automationService)

	// queue worker
	worker := queue.NewWorker(cfg, queueRepo, postRepo, socialAccountRepo, nil)

	c := cron.New()
	c.AddFunc("@every 00h01m00s", dispatcherJob.Dispatch)
	c.AddFunc("@every 01h00m00s", analyticsJob.Collect)
	c.AddFunc("@every 00h10m00s", tokenRefreshJob.RefreshTokens)
	c.AddFunc("@every 00h05m00s", ruleSweepJob.Sweep)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishEntry, worker.HandlePublishEntryTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
