package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"duel-arena-service/handlers"
	"duel-arena-service/middleware"
	"duel-arena-service/models"
	"duel-arena-service/services"
	"duel-arena-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Name, X-User-Avatar, X-User-Roles, X-User-VIP-Tier",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.DuelInvite{},
		&models.PendingDuel{},
		&models.DuelHistoryEntry{},
		&models.DuelStats{},
		&models.PlayerWallet{},
		&models.DuelNotification{},
		&models.QuotaUsage{},
		&models.RewardConfig{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	duelServiceURL := os.Getenv("DUEL_SERVICE_URL")
	if duelServiceURL == "" {
		log.Fatal("DUEL_SERVICE_URL environment variable not set")
	}
	questionServiceURL := os.Getenv("QUESTION_SERVICE_URL")
	if questionServiceURL == "" {
		log.Fatal("QUESTION_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("DUEL_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("DUEL_SERVICE_TOKEN environment variable not set")
	}

	remote := services.NewDuelServiceClient(duelServiceURL, serviceToken)
	questions := services.NewQuestionServiceClient(questionServiceURL, serviceToken)

	store := services.NewGormSessionStore(db)
	invites := services.NewInviteRegistry(db)
	quota := services.NewQuotaGate(db, services.LoadQuotaConfig())
	sessions := services.NewSessionManager(remote, questions, quota, store)
	duelService := services.NewDuelService(db, remote, sessions, invites, quota, store)

	sweep := services.NewSweepService(db, sessions, store, quota)
	sweep.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncWorker := workers.NewOverviewSyncWorker(db, remote, invites)
	go syncWorker.PollOverviews(ctx, 5*time.Minute)

	handlers.SetupDuelRoutes(app, duelService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Expiry sweep running (every 60s)")
	log.Println("✅ Overview polling running (every 5m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")

	<-ctx.Done()
	log.Println("Shutting down server...")
}
