package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/foodloop-labs/foodloop-backend/internal/handlers"
	"github.com/foodloop-labs/foodloop-backend/internal/middleware"
	"github.com/foodloop-labs/foodloop-backend/internal/push"
	"github.com/foodloop-labs/foodloop-backend/internal/services"
	"github.com/foodloop-labs/foodloop-backend/internal/storage"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, store storage.Store, orders *services.OrderService,
	otp *services.OTPService, sessions *services.SessionService, dispatcher *push.Dispatcher) {

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to FoodLoop Backend!",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"health":        "/health",
				"api":           "/api",
				"auth":          "/api/auth",
				"orders":        "/api/orders",
				"notifications": "/api/notifications",
			},
		})
	})

	healthHandler := handlers.NewHealthHandler("1.0.0")
	app.Get("/health", healthHandler.Check)

	api := app.Group("/api")

	// Auth routes
	authHandler := handlers.NewAuthHandler(store, otp, sessions)
	auth := api.Group("/auth")
	auth.Post("/send-verification", authHandler.SendVerification)
	auth.Post("/verify-code", authHandler.VerifyCode)
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Order routes
	orderHandler := handlers.NewOrderHandler(store, orders)
	orderGroup := api.Group("/orders")
	orderGroup.Post("/", middleware.RequireAuth(sessions), orderHandler.Create)
	orderGroup.Get("/", orderHandler.List)
	orderGroup.Get("/:id", orderHandler.Get)
	orderGroup.Patch("/:id/status", orderHandler.UpdateStatus)
	orderGroup.Post("/:id/accept", orderHandler.Accept)
	orderGroup.Get("/customer/:customerId", middleware.RequireAuth(sessions), orderHandler.ListByCustomer)
	orderGroup.Get("/restaurant/:restaurantId", orderHandler.ListByRestaurant)
	orderGroup.Get("/delivery-partner/:partnerId", orderHandler.ListByDeliveryPartner)

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(store, dispatcher)
	notifications := api.Group("/notifications")
	notifications.Post("/delivery-partners/broadcast", notificationHandler.BroadcastToDeliveryPartners)
	notifications.Post("/customers/broadcast", notificationHandler.BroadcastToCustomers)
	notifications.Post("/customers/send", notificationHandler.NotifyCustomer)
	notifications.Post("/:kind/token", notificationHandler.RegisterToken)
	notifications.Delete("/:kind/token", notificationHandler.RemoveToken)
}
