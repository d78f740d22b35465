package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/foodloop-labs/foodloop-backend/internal/models"
	"github.com/foodloop-labs/foodloop-backend/internal/push"
	"github.com/foodloop-labs/foodloop-backend/internal/services"
	"github.com/foodloop-labs/foodloop-backend/internal/storage"
)

// NotificationHandler handles push-token registration and broadcasts
type NotificationHandler struct {
	store      storage.Store
	dispatcher *push.Dispatcher
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(store storage.Store, dispatcher *push.Dispatcher) *NotificationHandler {
	return &NotificationHandler{store: store, dispatcher: dispatcher}
}

// recipientKind maps the :kind path segment to a recipient kind.
func recipientKind(segment string) (models.RecipientKind, bool) {
	switch segment {
	case "customers":
		return models.KindCustomer, true
	case "restaurants":
		return models.KindRestaurant, true
	case "delivery-partners":
		return models.KindDeliveryPartner, true
	}
	return "", false
}

// RegisterToken stores or overwrites a recipient's push token
func (h *NotificationHandler) RegisterToken(c *fiber.Ctx) error {
	kind, ok := recipientKind(c.Params("kind"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown recipient kind",
		})
	}

	var req struct {
		RecipientID     string  `json:"recipientId"`
		MobilePushToken *string `json:"mobilePushToken"`
		WebPushToken    *string `json:"webPushToken"`
	}
	if err := c.BodyParser(&req); err != nil || req.RecipientID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "recipientId is required",
		})
	}
	if req.MobilePushToken == nil && req.WebPushToken == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A mobilePushToken or webPushToken is required",
		})
	}

	patch := models.TokenPatch{
		MobilePushToken: req.MobilePushToken,
		WebPushToken:    req.WebPushToken,
	}
	if err := h.store.UpdateRecipientTokens(kind, req.RecipientID, patch); err != nil {
		if errors.Is(err, models.ErrRecipientNotFound) || errors.Is(err, models.ErrCustomerNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Recipient not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store push token",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Push token stored successfully",
	})
}

// RemoveToken clears one channel token from a recipient
func (h *NotificationHandler) RemoveToken(c *fiber.Ctx) error {
	kind, ok := recipientKind(c.Params("kind"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown recipient kind",
		})
	}

	var req struct {
		RecipientID string         `json:"recipientId"`
		Channel     models.Channel `json:"channel"`
	}
	if err := c.BodyParser(&req); err != nil || req.RecipientID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "recipientId is required",
		})
	}
	if req.Channel != models.ChannelMobile && req.Channel != models.ChannelWeb {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "channel must be mobile or web",
		})
	}

	if err := h.store.ClearRecipientToken(kind, req.RecipientID, req.Channel); err != nil {
		if errors.Is(err, models.ErrRecipientNotFound) || errors.Is(err, models.ErrCustomerNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Recipient not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to remove push token",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Push token removed",
	})
}

// BroadcastToDeliveryPartners sends a notification to all live partners
func (h *NotificationHandler) BroadcastToDeliveryPartners(c *fiber.Ctx) error {
	var req struct {
		Title string            `json:"title"`
		Body  string            `json:"body"`
		Data  map[string]string `json:"data"`
	}
	if err := c.BodyParser(&req); err != nil || req.Title == "" || req.Body == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title and body are required",
		})
	}

	partners, err := h.store.GetLiveDeliveryPartners()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load delivery partners",
		})
	}
	recipients := make([]models.Recipient, 0, len(partners))
	for _, p := range partners {
		recipients = append(recipients, p.Recipient())
	}

	result := h.dispatcher.Notify(c.Context(), recipients, push.Notification{
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	})

	return c.JSON(fiber.Map{
		"message": "Notifications sent to all live delivery partners",
		"result":  result,
	})
}

// BroadcastToCustomers sends a notification to every customer holding a token
func (h *NotificationHandler) BroadcastToCustomers(c *fiber.Ctx) error {
	var req struct {
		Title string            `json:"title"`
		Body  string            `json:"body"`
		Data  map[string]string `json:"data"`
	}
	if err := c.BodyParser(&req); err != nil || req.Title == "" || req.Body == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title and body are required",
		})
	}

	customers, err := h.store.GetCustomersWithTokens()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load customers",
		})
	}
	recipients := make([]models.Recipient, 0, len(customers))
	for _, cust := range customers {
		recipients = append(recipients, cust.Recipient())
	}

	result := h.dispatcher.Notify(c.Context(), recipients, push.Notification{
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	})

	return c.JSON(fiber.Map{
		"message": "Notifications sent to all customers with push tokens",
		"result":  result,
	})
}

// NotifyCustomer sends an order-status notification to one customer
func (h *NotificationHandler) NotifyCustomer(c *fiber.Ctx) error {
	var req struct {
		CustomerID string             `json:"customerId"`
		OrderID    string             `json:"orderId"`
		Status     models.OrderStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil || req.CustomerID == "" || req.OrderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "customerId and orderId are required",
		})
	}

	msg, ok := services.CustomerStatusMessage(req.Status)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No customer notification is defined for this status",
		})
	}

	recipient, err := h.store.GetRecipient(models.KindCustomer, req.CustomerID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Customer not found",
		})
	}

	result := h.dispatcher.Notify(c.Context(), []models.Recipient{recipient}, push.Notification{
		Title: msg.Title,
		Body:  msg.Body,
		Data: map[string]string{
			"orderId": req.OrderID,
			"status":  string(req.Status),
			"type":    "order_status_update",
		},
		Web: push.WebOptions{
			ClickAction:        "/orders/" + req.OrderID,
			Tag:                "order-" + req.OrderID,
			RequireInteraction: req.Status == models.StatusDelivered,
		},
	})

	return c.JSON(fiber.Map{
		"message": "Notification sent to customer",
		"result":  result,
	})
}
