package storage

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foodloop-labs/foodloop-backend/internal/models"
)

// MemoryStore holds all data in memory. Used for local development and
// tests (USE_MEMORY_STORE=true); not for production.
type MemoryStore struct {
	orders      map[string]*models.Order
	menuItems   map[string]*models.MenuItem
	customers   map[string]*models.Customer
	restaurants map[string]*models.Restaurant
	partners    map[string]*models.DeliveryPartner

	// Mutexes for thread safety
	orderMu    sync.RWMutex
	menuMu     sync.RWMutex
	customerMu sync.RWMutex
	restMu     sync.RWMutex
	partnerMu  sync.RWMutex
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:      make(map[string]*models.Order),
		menuItems:   make(map[string]*models.MenuItem),
		customers:   make(map[string]*models.Customer),
		restaurants: make(map[string]*models.Restaurant),
		partners:    make(map[string]*models.DeliveryPartner),
	}
}

// Order operations

func (m *MemoryStore) CreateOrder(order *models.Order) (*models.Order, error) {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.Status == "" {
		order.Status = models.StatusPending
	}
	order.PlacedAt = time.Now()
	order.UpdatedAt = order.PlacedAt
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.NewString()
		}
		order.Items[i].OrderID = order.ID
	}

	stored := copyOrder(order)
	m.orders[order.ID] = stored
	return copyOrder(stored), nil
}

func (m *MemoryStore) GetOrder(id string) (*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	order, exists := m.orders[id]
	if !exists {
		return nil, models.ErrOrderNotFound
	}
	return copyOrder(order), nil
}

// activeStatuses filters list queries the same way the order board does.
var activeStatuses = map[models.OrderStatus]bool{
	models.StatusPending:   true,
	models.StatusPreparing: true,
	models.StatusReady:     true,
}

func (m *MemoryStore) GetActiveOrders() ([]*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	var orders []*models.Order
	for _, o := range m.orders {
		if activeStatuses[o.Status] {
			orders = append(orders, copyOrder(o))
		}
	}
	return orders, nil
}

func (m *MemoryStore) GetOrdersByCustomer(customerID string) ([]*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	var orders []*models.Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			orders = append(orders, copyOrder(o))
		}
	}
	return orders, nil
}

func (m *MemoryStore) GetOrdersByRestaurant(restaurantID string) ([]*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	var orders []*models.Order
	for _, o := range m.orders {
		if o.RestaurantID == restaurantID && activeStatuses[o.Status] {
			orders = append(orders, copyOrder(o))
		}
	}
	return orders, nil
}

func (m *MemoryStore) GetOrdersByDeliveryPartner(partnerID string) ([]*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	var orders []*models.Order
	for _, o := range m.orders {
		if o.DeliveryPartnerID == nil || *o.DeliveryPartnerID != partnerID {
			continue
		}
		if o.Status == models.StatusDispatch || o.Status == models.StatusDelivered {
			orders = append(orders, copyOrder(o))
		}
	}
	return orders, nil
}

func (m *MemoryStore) UpdateOrderStatusGuarded(id string, from, to models.OrderStatus) (bool, error) {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	order, exists := m.orders[id]
	if !exists {
		return false, models.ErrOrderNotFound
	}
	if order.Status != from {
		return false, nil
	}
	order.Status = to
	order.UpdatedAt = time.Now()
	return true, nil
}

func (m *MemoryStore) AssignDeliveryPartner(orderID, partnerID string) (*models.Order, error) {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	order, exists := m.orders[orderID]
	if !exists {
		return nil, models.ErrOrderNotFound
	}
	if order.DeliveryPartnerID != nil && *order.DeliveryPartnerID != "" {
		return nil, models.ErrPartnerAlreadyAssigned
	}
	if order.Status == models.StatusDispatch || order.Status.Terminal() {
		return nil, &models.InvalidTransitionError{
			From:   order.Status,
			To:     order.Status,
			Reason: "delivery partner can only be assigned while the order is ready or earlier",
		}
	}
	id := partnerID
	order.DeliveryPartnerID = &id
	order.UpdatedAt = time.Now()
	return copyOrder(order), nil
}

// Menu operations

func (m *MemoryStore) CreateMenuItem(item *models.MenuItem) (*models.MenuItem, error) {
	m.menuMu.Lock()
	defer m.menuMu.Unlock()

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	cp := *item
	m.menuItems[item.ID] = &cp
	return item, nil
}

func (m *MemoryStore) GetMenuItem(id string) (*models.MenuItem, error) {
	m.menuMu.RLock()
	defer m.menuMu.RUnlock()

	item, exists := m.menuItems[id]
	if !exists {
		return nil, models.ErrMenuItemNotFound
	}
	cp := *item
	return &cp, nil
}

func (m *MemoryStore) GetMenuByRestaurant(restaurantID string) ([]*models.MenuItem, error) {
	m.menuMu.RLock()
	defer m.menuMu.RUnlock()

	var items []*models.MenuItem
	for _, item := range m.menuItems {
		if item.RestaurantID == restaurantID {
			cp := *item
			items = append(items, &cp)
		}
	}
	return items, nil
}

// Customer operations

func (m *MemoryStore) CreateCustomer(customer *models.Customer) (*models.Customer, error) {
	m.customerMu.Lock()
	defer m.customerMu.Unlock()

	for _, c := range m.customers {
		if strings.EqualFold(c.Email, customer.Email) {
			return nil, models.ErrEmailTaken
		}
	}
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	customer.CreatedAt = time.Now()
	customer.UpdatedAt = customer.CreatedAt
	cp := *customer
	m.customers[customer.ID] = &cp
	return customer, nil
}

func (m *MemoryStore) GetCustomer(id string) (*models.Customer, error) {
	m.customerMu.RLock()
	defer m.customerMu.RUnlock()

	customer, exists := m.customers[id]
	if !exists {
		return nil, models.ErrCustomerNotFound
	}
	cp := *customer
	return &cp, nil
}

func (m *MemoryStore) GetCustomerByEmail(email string) (*models.Customer, error) {
	m.customerMu.RLock()
	defer m.customerMu.RUnlock()

	for _, c := range m.customers {
		if strings.EqualFold(c.Email, email) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, models.ErrCustomerNotFound
}

func (m *MemoryStore) GetCustomersWithTokens() ([]*models.Customer, error) {
	m.customerMu.RLock()
	defer m.customerMu.RUnlock()

	var customers []*models.Customer
	for _, c := range m.customers {
		if c.MobilePushToken != "" || c.WebPushToken != "" {
			cp := *c
			customers = append(customers, &cp)
		}
	}
	return customers, nil
}

// Restaurant operations

func (m *MemoryStore) CreateRestaurant(restaurant *models.Restaurant) (*models.Restaurant, error) {
	m.restMu.Lock()
	defer m.restMu.Unlock()

	if restaurant.ID == "" {
		restaurant.ID = uuid.NewString()
	}
	restaurant.CreatedAt = time.Now()
	restaurant.UpdatedAt = restaurant.CreatedAt
	cp := *restaurant
	m.restaurants[restaurant.ID] = &cp
	return restaurant, nil
}

func (m *MemoryStore) GetRestaurant(id string) (*models.Restaurant, error) {
	m.restMu.RLock()
	defer m.restMu.RUnlock()

	restaurant, exists := m.restaurants[id]
	if !exists {
		return nil, models.ErrRecipientNotFound
	}
	cp := *restaurant
	return &cp, nil
}

// Delivery partner operations

func (m *MemoryStore) CreateDeliveryPartner(partner *models.DeliveryPartner) (*models.DeliveryPartner, error) {
	m.partnerMu.Lock()
	defer m.partnerMu.Unlock()

	if partner.ID == "" {
		partner.ID = uuid.NewString()
	}
	partner.CreatedAt = time.Now()
	partner.UpdatedAt = partner.CreatedAt
	cp := *partner
	m.partners[partner.ID] = &cp
	return partner, nil
}

func (m *MemoryStore) GetDeliveryPartner(id string) (*models.DeliveryPartner, error) {
	m.partnerMu.RLock()
	defer m.partnerMu.RUnlock()

	partner, exists := m.partners[id]
	if !exists {
		return nil, models.ErrRecipientNotFound
	}
	cp := *partner
	return &cp, nil
}

func (m *MemoryStore) GetLiveDeliveryPartners() ([]*models.DeliveryPartner, error) {
	m.partnerMu.RLock()
	defer m.partnerMu.RUnlock()

	var partners []*models.DeliveryPartner
	for _, p := range m.partners {
		if p.IsLive {
			cp := *p
			partners = append(partners, &cp)
		}
	}
	return partners, nil
}

func (m *MemoryStore) SetDeliveryPartnerLive(id string, live bool) error {
	m.partnerMu.Lock()
	defer m.partnerMu.Unlock()

	partner, exists := m.partners[id]
	if !exists {
		return models.ErrRecipientNotFound
	}
	partner.IsLive = live
	partner.UpdatedAt = time.Now()
	return nil
}

// Recipient token operations

func (m *MemoryStore) GetRecipient(kind models.RecipientKind, id string) (models.Recipient, error) {
	switch kind {
	case models.KindCustomer:
		c, err := m.GetCustomer(id)
		if err != nil {
			return models.Recipient{}, err
		}
		return c.Recipient(), nil
	case models.KindRestaurant:
		r, err := m.GetRestaurant(id)
		if err != nil {
			return models.Recipient{}, err
		}
		return r.Recipient(), nil
	case models.KindDeliveryPartner:
		p, err := m.GetDeliveryPartner(id)
		if err != nil {
			return models.Recipient{}, err
		}
		return p.Recipient(), nil
	}
	return models.Recipient{}, models.ErrRecipientNotFound
}

func (m *MemoryStore) UpdateRecipientTokens(kind models.RecipientKind, id string, patch models.TokenPatch) error {
	apply := func(mobile, web *string) {
		if patch.MobilePushToken != nil {
			*mobile = *patch.MobilePushToken
		}
		if patch.WebPushToken != nil {
			*web = *patch.WebPushToken
		}
	}

	switch kind {
	case models.KindCustomer:
		m.customerMu.Lock()
		defer m.customerMu.Unlock()
		c, exists := m.customers[id]
		if !exists {
			return models.ErrRecipientNotFound
		}
		apply(&c.MobilePushToken, &c.WebPushToken)
		c.UpdatedAt = time.Now()
		return nil
	case models.KindRestaurant:
		m.restMu.Lock()
		defer m.restMu.Unlock()
		r, exists := m.restaurants[id]
		if !exists {
			return models.ErrRecipientNotFound
		}
		apply(&r.MobilePushToken, &r.WebPushToken)
		r.UpdatedAt = time.Now()
		return nil
	case models.KindDeliveryPartner:
		m.partnerMu.Lock()
		defer m.partnerMu.Unlock()
		p, exists := m.partners[id]
		if !exists {
			return models.ErrRecipientNotFound
		}
		apply(&p.MobilePushToken, &p.WebPushToken)
		p.UpdatedAt = time.Now()
		return nil
	}
	return models.ErrRecipientNotFound
}

func (m *MemoryStore) ClearRecipientToken(kind models.RecipientKind, id string, channel models.Channel) error {
	empty := ""
	patch := models.TokenPatch{}
	switch channel {
	case models.ChannelMobile:
		patch.MobilePushToken = &empty
	case models.ChannelWeb:
		patch.WebPushToken = &empty
	}
	return m.UpdateRecipientTokens(kind, id, patch)
}

func copyOrder(o *models.Order) *models.Order {
	cp := *o
	if o.DeliveryPartnerID != nil {
		id := *o.DeliveryPartnerID
		cp.DeliveryPartnerID = &id
	}
	cp.Items = make([]models.OrderItem, len(o.Items))
	copy(cp.Items, o.Items)
	return &cp
}
