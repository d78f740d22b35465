package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/foodloop-labs/foodloop-backend/database"
	"github.com/foodloop-labs/foodloop-backend/internal/jobs"
	"github.com/foodloop-labs/foodloop-backend/internal/models"
	"github.com/foodloop-labs/foodloop-backend/internal/push"
	"github.com/foodloop-labs/foodloop-backend/internal/routes"
	"github.com/foodloop-labs/foodloop-backend/internal/services"
	"github.com/foodloop-labs/foodloop-backend/internal/storage"
)

func main() {
	// Load .env file for local development
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found - checking environment variables")
	}

	// Initialize storage
	var store storage.Store
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.Customer{},
			&models.Restaurant{},
			&models.DeliveryPartner{},
			&models.MenuItem{},
			&models.Order{},
			&models.OrderItem{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
		log.Println("✅ Using PostgreSQL database storage")
	}

	// Push channel providers. Either channel may be absent locally; sends
	// on a missing channel fail per-recipient without affecting the other.
	var mobileProvider push.MobileProvider = push.NewExpoMobileProvider()

	var webProvider push.WebProvider
	if creds := os.Getenv("FIREBASE_CREDENTIALS"); creds != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		fcm, err := push.NewFCMWebProvider(ctx, []byte(creds))
		cancel()
		if err != nil {
			log.Printf("⚠️  Firebase init failed - web push disabled: %v", err)
		} else {
			webProvider = fcm
			log.Println("✅ Firebase web push initialized")
		}
	} else {
		log.Println("⚠️  FIREBASE_CREDENTIALS not set - web push disabled")
	}

	dispatcher := push.NewDispatcher(mobileProvider, webProvider, store)

	// OTP transports
	var emailSender services.EmailSender
	if mailer, err := services.NewMailService(); err != nil {
		log.Printf("⚠️  SMTP not configured - email verification disabled: %v", err)
	} else {
		emailSender = mailer
		log.Println("✅ Mail service initialized")
	}

	var smsSender services.SMSSender
	if twilioService, err := services.NewTwilioService(); err != nil {
		log.Printf("⚠️  Twilio not configured - SMS verification disabled: %v", err)
	} else {
		smsSender = twilioService
		log.Println("✅ Twilio service initialized")
	}

	// Core services
	otpStore := services.NewMemoryOTPStore()
	otpService := services.NewOTPService(otpStore, emailSender, smsSender)
	orderService := services.NewOrderService(store, dispatcher)

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}
	sessionService := services.NewSessionService(jwtSecret)

	// Background jobs
	cleanupJob := jobs.NewCleanupJob(otpStore)
	cleanupJob.Start()

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "FoodLoop Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))

	routes.SetupRoutes(app, store, orderService, otpService, sessionService, dispatcher)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Gracefully shutting down...")
		cleanupJob.Stop()
		_ = app.Shutdown()
	}()

	log.Println("========================================")
	log.Printf("🚀 FoodLoop Backend starting on port %s", port)
	log.Printf("📊 Storage: %s", storageType())
	log.Println("========================================")

	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Server failed to start:", err)
	}

	log.Println("👋 Server stopped")
}

func storageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "in-memory"
	}
	return "postgresql"
}
