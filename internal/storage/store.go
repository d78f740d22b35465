package storage

import (
	"github.com/foodloop-labs/foodloop-backend/internal/models"
)

// Store defines the interface for storage operations
type Store interface {
	// Order operations
	CreateOrder(order *models.Order) (*models.Order, error)
	GetOrder(id string) (*models.Order, error)
	GetActiveOrders() ([]*models.Order, error)
	GetOrdersByCustomer(customerID string) ([]*models.Order, error)
	GetOrdersByRestaurant(restaurantID string) ([]*models.Order, error)
	GetOrdersByDeliveryPartner(partnerID string) ([]*models.Order, error)
	// UpdateOrderStatusGuarded performs a conditional update: the status is
	// written only if the stored status still equals from. Returns false
	// when the condition no longer held (a concurrent transition won).
	UpdateOrderStatusGuarded(id string, from, to models.OrderStatus) (bool, error)
	// AssignDeliveryPartner sets the partner exactly once, and only while
	// the order is in ready state or earlier.
	AssignDeliveryPartner(orderID, partnerID string) (*models.Order, error)

	// Menu operations
	CreateMenuItem(item *models.MenuItem) (*models.MenuItem, error)
	GetMenuItem(id string) (*models.MenuItem, error)
	GetMenuByRestaurant(restaurantID string) ([]*models.MenuItem, error)

	// Customer operations
	CreateCustomer(customer *models.Customer) (*models.Customer, error)
	GetCustomer(id string) (*models.Customer, error)
	GetCustomerByEmail(email string) (*models.Customer, error)
	GetCustomersWithTokens() ([]*models.Customer, error)

	// Restaurant operations
	CreateRestaurant(restaurant *models.Restaurant) (*models.Restaurant, error)
	GetRestaurant(id string) (*models.Restaurant, error)

	// Delivery partner operations
	CreateDeliveryPartner(partner *models.DeliveryPartner) (*models.DeliveryPartner, error)
	GetDeliveryPartner(id string) (*models.DeliveryPartner, error)
	GetLiveDeliveryPartners() ([]*models.DeliveryPartner, error)
	SetDeliveryPartnerLive(id string, live bool) error

	// Recipient token operations, polymorphic over the recipient kind.
	GetRecipient(kind models.RecipientKind, id string) (models.Recipient, error)
	UpdateRecipientTokens(kind models.RecipientKind, id string, patch models.TokenPatch) error
	ClearRecipientToken(kind models.RecipientKind, id string, channel models.Channel) error
}
