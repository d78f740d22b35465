package services

import (
	"fmt"
	"log"

	"github.com/foodloop-labs/foodloop-backend/internal/models"
	"github.com/foodloop-labs/foodloop-backend/internal/push"
	"github.com/foodloop-labs/foodloop-backend/internal/storage"
)

// Notifier is the slice of the push dispatcher the order service needs.
// Dispatch is detached: the order operation returns before delivery is
// attempted, and delivery failures never surface to the order's caller.
type Notifier interface {
	NotifyDetached(recipients []models.Recipient, note push.Notification)
}

// OrderService validates and applies order lifecycle operations and
// triggers the notifications each transition requires.
type OrderService struct {
	store    storage.Store
	notifier Notifier
}

// NewOrderService creates a new order service
func NewOrderService(store storage.Store, notifier Notifier) *OrderService {
	return &OrderService{store: store, notifier: notifier}
}

// OrderItemInput is one requested line of a new order.
type OrderItemInput struct {
	MenuItemID string              `json:"menuItemId"`
	Quantity   int                 `json:"quantity"`
	Addons     []models.OrderAddon `json:"item_addons,omitempty"`
}

// CreateOrderInput is the payload for order creation.
type CreateOrderInput struct {
	RestaurantID  string           `json:"restaurantId"`
	CustomerID    string           `json:"customerId"`
	Items         []OrderItemInput `json:"items"`
	PaymentType   string           `json:"paymentType"`
	OrderType     string           `json:"orderType"`
	Address       string           `json:"address"`
	CustomerNotes string           `json:"customerNotes"`
	Distance      float64          `json:"distance"`
}

// CreateOrder validates every line item against the menu, computes amounts
// (GST once at creation, never recomputed), persists the order with its
// items atomically, and fires the new-order notifications. The
// notifications are fire-and-forget: their failure is logged, never
// surfaced as an order-creation failure.
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	if input.RestaurantID == "" || input.CustomerID == "" {
		return nil, &models.ValidationError{Message: "restaurantId and customerId are required"}
	}
	if len(input.Items) == 0 {
		return nil, &models.ValidationError{Message: "order must contain at least one item"}
	}

	var itemsAmount float64
	orderItems := make([]models.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, &models.ValidationError{Message: "item quantity must be positive"}
		}
		menuItem, err := s.store.GetMenuItem(item.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", models.ErrMenuItemNotFound, item.MenuItemID)
		}

		lineTotal := menuItem.EffectivePrice() * float64(item.Quantity)
		var addonTotal float64
		for _, addon := range item.Addons {
			addonTotal += addon.ExtraPrice
		}

		orderItems = append(orderItems, models.OrderItem{
			MenuItemID:      menuItem.ID,
			Quantity:        item.Quantity,
			BasePrice:       menuItem.Price,
			Addons:          item.Addons,
			TotalAddonPrice: addonTotal,
			TotalPrice:      lineTotal + addonTotal,
		})
		itemsAmount += lineTotal + addonTotal
	}

	gst := itemsAmount * models.GSTRate
	order := &models.Order{
		Status:        models.StatusPending,
		CustomerID:    input.CustomerID,
		RestaurantID:  input.RestaurantID,
		ItemsAmount:   itemsAmount,
		GST:           gst,
		DeliveryFee:   0,
		TotalAmount:   itemsAmount + gst,
		PaymentType:   input.PaymentType,
		OrderType:     input.OrderType,
		Address:       input.Address,
		CustomerNotes: input.CustomerNotes,
		Distance:      input.Distance,
		Items:         orderItems,
	}

	created, err := s.store.CreateOrder(order)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.notifyNewOrder(created)
	return created, nil
}

// TransitionStatus loads the order, checks the transition guards, persists
// the new status through a conditional update, and notifies the customer
// for statuses that carry a message. Rejected transitions are exempt from
// customer notification.
func (s *OrderService) TransitionStatus(orderID string, target models.OrderStatus) (*models.Order, error) {
	if !target.Valid() {
		return nil, &models.ValidationError{Message: fmt.Sprintf("unknown order status %q", target)}
	}

	order, err := s.store.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if err := models.GuardTransition(order, target); err != nil {
		return nil, err
	}

	// Conditional update: the guard was evaluated against a snapshot, so
	// the write re-checks the status to keep two racing transitions from
	// both passing a stale guard.
	updated, err := s.store.UpdateOrderStatusGuarded(orderID, order.Status, target)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, &models.InvalidTransitionError{
			From:   order.Status,
			To:     target,
			Reason: models.ErrStatusConflict.Error(),
		}
	}
	order.Status = target

	if msg, ok := CustomerStatusMessage(target); ok {
		s.notifyCustomerStatus(order, msg)
	}
	return order, nil
}

// AcceptOrder records that a delivery partner accepted the order. The
// partner is assigned exactly once, and only while the order is ready or
// earlier.
func (s *OrderService) AcceptOrder(orderID, partnerID string) (*models.Order, error) {
	if _, err := s.store.GetDeliveryPartner(partnerID); err != nil {
		return nil, err
	}
	return s.store.AssignDeliveryPartner(orderID, partnerID)
}

// notifyNewOrder fans out the two creation-time notifications: a broadcast
// to every live delivery partner, and a new-order alert to the restaurant.
func (s *OrderService) notifyNewOrder(order *models.Order) {
	partners, err := s.store.GetLiveDeliveryPartners()
	if err != nil {
		log.Printf("⚠️  Could not load live delivery partners for order %s: %v", order.ID, err)
	} else if len(partners) > 0 {
		recipients := make([]models.Recipient, 0, len(partners))
		for _, p := range partners {
			recipients = append(recipients, p.Recipient())
		}
		s.notifier.NotifyDetached(recipients, push.Notification{
			Title: "New Order Available",
			Body:  "A new order has been placed. Tap to view details.",
			Data: map[string]string{
				"orderId": order.ID,
				"type":    "new_order",
			},
		})
	}

	restaurant, err := s.store.GetRecipient(models.KindRestaurant, order.RestaurantID)
	if err != nil {
		log.Printf("⚠️  Could not load restaurant %s for order %s: %v", order.RestaurantID, order.ID, err)
		return
	}
	body := fmt.Sprintf("Order #%s - ₹%.2f", order.ID, order.TotalAmount)
	if customer, err := s.store.GetCustomer(order.CustomerID); err == nil {
		body = fmt.Sprintf("Order from %s - ₹%.2f", customer.Name, order.TotalAmount)
	}
	s.notifier.NotifyDetached([]models.Recipient{restaurant}, push.Notification{
		Title: "New Order Received!",
		Body:  body,
		Data: map[string]string{
			"orderId":      order.ID,
			"restaurantId": order.RestaurantID,
			"type":         "new_order",
		},
		Web: push.WebOptions{
			ClickAction: "/restaurant/orders/" + order.ID,
			Tag:         "order-" + order.ID,
		},
	})
}

func (s *OrderService) notifyCustomerStatus(order *models.Order, msg StatusMessage) {
	recipient, err := s.store.GetRecipient(models.KindCustomer, order.CustomerID)
	if err != nil {
		log.Printf("⚠️  Could not load customer %s for order %s: %v", order.CustomerID, order.ID, err)
		return
	}
	s.notifier.NotifyDetached([]models.Recipient{recipient}, push.Notification{
		Title: msg.Title,
		Body:  msg.Body,
		Data: map[string]string{
			"orderId": order.ID,
			"status":  string(order.Status),
			"type":    "order_status_update",
		},
		Web: push.WebOptions{
			ClickAction:        "/orders/" + order.ID,
			Tag:                "order-" + order.ID,
			RequireInteraction: order.Status == models.StatusDelivered,
		},
	})
}
