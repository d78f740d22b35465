package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/foodloop-labs/foodloop-backend/internal/services"
)

// RequireAuth validates the bearer session token and stores the customer id
// in the request locals.
func RequireAuth(sessions *services.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
			})
		}

		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Malformed authorization header",
			})
		}

		customerID, err := sessions.ParseToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired session token",
			})
		}

		c.Locals("customerId", customerID)
		return c.Next()
	}
}
