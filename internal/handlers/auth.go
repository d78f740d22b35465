package handlers

import (
	"errors"
	"sync"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/foodloop-labs/foodloop-backend/internal/models"
	"github.com/foodloop-labs/foodloop-backend/internal/services"
	"github.com/foodloop-labs/foodloop-backend/internal/storage"
)

// AuthHandler handles registration, login and contact verification
type AuthHandler struct {
	store    storage.Store
	otp      *services.OTPService
	sessions *services.SessionService

	// verified tracks identifiers that passed code verification and may
	// complete registration. The mark is consumed on successful registration.
	mu       sync.Mutex
	verified map[string]bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(store storage.Store, otp *services.OTPService, sessions *services.SessionService) *AuthHandler {
	return &AuthHandler{store: store, otp: otp, sessions: sessions, verified: make(map[string]bool)}
}

func (h *AuthHandler) markVerified(identifier string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.verified[identifier] = true
}

func (h *AuthHandler) consumeVerified(identifier string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.verified[identifier] {
		return false
	}
	delete(h.verified, identifier)
	return true
}

// SendVerification issues a verification code to an email address or phone
// number ahead of account creation.
func (h *AuthHandler) SendVerification(c *fiber.Ctx) error {
	var req struct {
		Identifier string `json:"identifier"`
	}
	if err := c.BodyParser(&req); err != nil || req.Identifier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "identifier is required",
		})
	}

	if _, err := h.store.GetCustomerByEmail(req.Identifier); err == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email is already verified and registered",
		})
	}

	if _, err := h.otp.Issue(req.Identifier); err != nil {
		if errors.Is(err, models.ErrDeliveryFailed) {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Could not deliver the verification code",
			})
		}
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": verr.Message,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to issue verification code",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Verification code sent",
	})
}

// VerifyCode checks a supplied verification code
func (h *AuthHandler) VerifyCode(c *fiber.Ctx) error {
	var req struct {
		Identifier string `json:"identifier"`
		Code       string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil || req.Identifier == "" || req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "identifier and code are required",
		})
	}

	if err := h.otp.Verify(req.Identifier, req.Code); err != nil {
		switch {
		case errors.Is(err, models.ErrOTPNotFound):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Verification code not found or already used",
			})
		case errors.Is(err, models.ErrOTPExpired):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Verification code expired",
			})
		case errors.Is(err, models.ErrOTPAttemptsExceeded):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Too many attempts, request a new code",
			})
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Incorrect verification code",
			})
		}
	}

	h.markVerified(req.Identifier)
	return c.JSON(fiber.Map{
		"message": "Verified successfully",
	})
}

// Register creates a customer account
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Phone    string `json:"phone"`
	}
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "email and password are required",
		})
	}

	if !h.consumeVerified(req.Email) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email must be verified before registration",
		})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.markVerified(req.Email)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create account",
		})
	}

	customer, err := h.store.CreateCustomer(&models.Customer{
		Email:        req.Email,
		Name:         req.Name,
		Phone:        req.Phone,
		PasswordHash: string(hash),
	})
	if err != nil {
		// A failed create keeps the verification usable for a retry.
		h.markVerified(req.Email)
		if errors.Is(err, models.ErrEmailTaken) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "User already exists with this email",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create account",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Registration successful",
		"customer": customer,
	})
}

// Login verifies credentials and issues a session token
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "email and password are required",
		})
	}

	customer, err := h.store.GetCustomerByEmail(req.Email)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid email or password",
		})
	}
	if bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(req.Password)) != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid email or password",
		})
	}

	token, err := h.sessions.IssueToken(customer.ID, customer.Email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to issue session token",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Login successful",
		"token":    token,
		"customer": customer,
	})
}
