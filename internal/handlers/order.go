package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/foodloop-labs/foodloop-backend/internal/models"
	"github.com/foodloop-labs/foodloop-backend/internal/services"
	"github.com/foodloop-labs/foodloop-backend/internal/storage"
)

// OrderHandler handles order-related requests
type OrderHandler struct {
	store  storage.Store
	orders *services.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(store storage.Store, orders *services.OrderService) *OrderHandler {
	return &OrderHandler{store: store, orders: orders}
}

// Create handles order creation
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var input services.CreateOrderInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	order, err := h.orders.CreateOrder(input)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": verr.Message,
			})
		}
		if errors.Is(err, models.ErrMenuItemNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create order",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Order created successfully",
		"order":   order,
	})
}

// Get retrieves an order by ID
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Order ID is required",
		})
	}

	order, err := h.store.GetOrder(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Order not found",
		})
	}

	return c.JSON(order)
}

// List retrieves all active orders
func (h *OrderHandler) List(c *fiber.Ctx) error {
	orders, err := h.store.GetActiveOrders()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve orders",
		})
	}

	return c.JSON(fiber.Map{
		"orders": orders,
		"count":  len(orders),
	})
}

// UpdateStatus applies a lifecycle transition to an order
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Order ID is required",
		})
	}

	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	order, err := h.orders.TransitionStatus(id, req.Status)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Order not found",
			})
		}
		var terr *models.InvalidTransitionError
		if errors.As(err, &terr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": terr.Reason,
			})
		}
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": verr.Message,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update order status",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Order status updated successfully",
		"order":   order,
	})
}

// Accept records a delivery partner accepting an order
func (h *OrderHandler) Accept(c *fiber.Ctx) error {
	id := c.Params("id")
	var req struct {
		PartnerID string `json:"partnerId"`
	}
	if err := c.BodyParser(&req); err != nil || req.PartnerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "partnerId is required",
		})
	}

	order, err := h.orders.AcceptOrder(id, req.PartnerID)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) || errors.Is(err, models.ErrRecipientNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if errors.Is(err, models.ErrPartnerAlreadyAssigned) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Another delivery partner already accepted this order",
			})
		}
		var terr *models.InvalidTransitionError
		if errors.As(err, &terr) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": terr.Reason,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to accept order",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Order accepted",
		"order":   order,
	})
}

// ListByCustomer retrieves a customer's order history
func (h *OrderHandler) ListByCustomer(c *fiber.Ctx) error {
	customerID := c.Params("customerId")
	orders, err := h.store.GetOrdersByCustomer(customerID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve orders",
		})
	}
	return c.JSON(fiber.Map{"orders": orders, "count": len(orders)})
}

// ListByRestaurant retrieves a restaurant's active orders
func (h *OrderHandler) ListByRestaurant(c *fiber.Ctx) error {
	restaurantID := c.Params("restaurantId")
	orders, err := h.store.GetOrdersByRestaurant(restaurantID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve orders",
		})
	}
	return c.JSON(fiber.Map{"orders": orders, "count": len(orders)})
}

// ListByDeliveryPartner retrieves a partner's dispatched and delivered orders
func (h *OrderHandler) ListByDeliveryPartner(c *fiber.Ctx) error {
	partnerID := c.Params("partnerId")
	orders, err := h.store.GetOrdersByDeliveryPartner(partnerID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve orders",
		})
	}
	return c.JSON(fiber.Map{"orders": orders, "count": len(orders)})
}
