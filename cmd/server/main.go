package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mnemo-backend/internal/config"
	"mnemo-backend/internal/database"
	"mnemo-backend/internal/handlers"
	"mnemo-backend/internal/middleware"
	"mnemo-backend/internal/queue"
	"mnemo-backend/internal/repository"
	"mnemo-backend/internal/review"
	"mnemo-backend/internal/router"
	"mnemo-backend/internal/websocket"
	"mnemo-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting Mnemo Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	cardRepo := repository.NewCardRepo(pool)
	deckRepo := repository.NewDeckRepo(pool)
	statsRepo := repository.NewStatsRepo(pool)

	// ──── Initialize Review Service ────
	reviewQueue := queue.NewReviewQueue(redisClients.Queue)
	dueCache := queue.NewDueCountCache(redisClients.Queue)
	reviewService := review.NewService(cardRepo, reviewQueue, review.Config{
		EaseFactorMax: cfg.EaseFactorMax,
		QueueLimit:    cfg.ReviewQueueLimit,
	})
	log.Printf("✓ Review service initialized (ease ceiling %.2f)", cfg.EaseFactorMax)

	// ──── Initialize Handlers ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	deckHandler := handlers.NewDeckHandler(deckRepo, cardRepo)
	reviewHandler := handlers.NewReviewHandler(reviewService, cardRepo)
	dashboardHandler := handlers.NewDashboardHandler(statsRepo, cardRepo, dueCache)

	// ──── Step 5: Start Stats Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, statsRepo, dueCache, cfg.StatsWorkers)
	workerPool.Start()
	log.Printf("✓ Stats worker pool started (%d goroutines)", cfg.StatsWorkers)

	// ──── Step 6: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth)
	log.Println("✓ WebSocket hub started")

	// ──── Step 7: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		deckHandler,
		reviewHandler,
		dashboardHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Mnemo Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
