package storage

import (
	"errors"

	"gorm.io/gorm"

	"github.com/foodloop-labs/foodloop-backend/internal/models"
)

// DatabaseStore is the PostgreSQL-backed Store.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a database-backed storage
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Order operations

func (s *DatabaseStore) CreateOrder(order *models.Order) (*models.Order, error) {
	if order.Status == "" {
		order.Status = models.StatusPending
	}
	// Single create with nested items; GORM wraps this in one transaction,
	// so a half-written order/items split is never observable.
	if err := s.db.Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (s *DatabaseStore) GetOrder(id string) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items").First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *DatabaseStore) GetActiveOrders() ([]*models.Order, error) {
	var orders []*models.Order
	err := s.db.Preload("Items").
		Where("status IN ?", []models.OrderStatus{models.StatusPending, models.StatusPreparing, models.StatusReady}).
		Find(&orders).Error
	return orders, err
}

func (s *DatabaseStore) GetOrdersByCustomer(customerID string) ([]*models.Order, error) {
	var orders []*models.Order
	err := s.db.Preload("Items").
		Where("customer_id = ?", customerID).
		Order("placed_at DESC").
		Find(&orders).Error
	return orders, err
}

func (s *DatabaseStore) GetOrdersByRestaurant(restaurantID string) ([]*models.Order, error) {
	var orders []*models.Order
	err := s.db.Preload("Items").
		Where("restaurant_id = ? AND status IN ?", restaurantID,
			[]models.OrderStatus{models.StatusPending, models.StatusPreparing, models.StatusReady}).
		Order("placed_at DESC").
		Find(&orders).Error
	return orders, err
}

func (s *DatabaseStore) GetOrdersByDeliveryPartner(partnerID string) ([]*models.Order, error) {
	var orders []*models.Order
	err := s.db.Preload("Items").
		Where("delivery_partner_id = ? AND status IN ?", partnerID,
			[]models.OrderStatus{models.StatusDispatch, models.StatusDelivered}).
		Order("placed_at DESC").
		Find(&orders).Error
	return orders, err
}

// UpdateOrderStatusGuarded is a compare-and-set on the status column: the
// WHERE clause re-checks the expected current status so two concurrent
// transitions cannot both pass a stale guard.
func (s *DatabaseStore) UpdateOrderStatusGuarded(id string, from, to models.OrderStatus) (bool, error) {
	res := s.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing order from a lost race.
		var count int64
		if err := s.db.Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return false, err
		}
		if count == 0 {
			return false, models.ErrOrderNotFound
		}
		return false, nil
	}
	return true, nil
}

func (s *DatabaseStore) AssignDeliveryPartner(orderID, partnerID string) (*models.Order, error) {
	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrOrderNotFound
			}
			return err
		}
		if order.DeliveryPartnerID != nil && *order.DeliveryPartnerID != "" {
			return models.ErrPartnerAlreadyAssigned
		}
		if order.Status == models.StatusDispatch || order.Status.Terminal() {
			return &models.InvalidTransitionError{
				From:   order.Status,
				To:     order.Status,
				Reason: "delivery partner can only be assigned while the order is ready or earlier",
			}
		}
		res := tx.Model(&models.Order{}).
			Where("id = ? AND delivery_partner_id IS NULL", orderID).
			Update("delivery_partner_id", partnerID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrPartnerAlreadyAssigned
		}
		order.DeliveryPartnerID = &partnerID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Menu operations

func (s *DatabaseStore) CreateMenuItem(item *models.MenuItem) (*models.MenuItem, error) {
	if err := s.db.Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (s *DatabaseStore) GetMenuItem(id string) (*models.MenuItem, error) {
	var item models.MenuItem
	err := s.db.First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrMenuItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *DatabaseStore) GetMenuByRestaurant(restaurantID string) ([]*models.MenuItem, error) {
	var items []*models.MenuItem
	err := s.db.Where("restaurant_id = ?", restaurantID).Find(&items).Error
	return items, err
}

// Customer operations

func (s *DatabaseStore) CreateCustomer(customer *models.Customer) (*models.Customer, error) {
	var count int64
	if err := s.db.Model(&models.Customer{}).Where("lower(email) = lower(?)", customer.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, models.ErrEmailTaken
	}
	if err := s.db.Create(customer).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *DatabaseStore) GetCustomer(id string) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.First(&customer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (s *DatabaseStore) GetCustomerByEmail(email string) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.Where("lower(email) = lower(?)", email).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (s *DatabaseStore) GetCustomersWithTokens() ([]*models.Customer, error) {
	var customers []*models.Customer
	err := s.db.Where("mobile_push_token <> '' OR web_push_token <> ''").Find(&customers).Error
	return customers, err
}

// Restaurant operations

func (s *DatabaseStore) CreateRestaurant(restaurant *models.Restaurant) (*models.Restaurant, error) {
	if err := s.db.Create(restaurant).Error; err != nil {
		return nil, err
	}
	return restaurant, nil
}

func (s *DatabaseStore) GetRestaurant(id string) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := s.db.First(&restaurant, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrRecipientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &restaurant, nil
}

// Delivery partner operations

func (s *DatabaseStore) CreateDeliveryPartner(partner *models.DeliveryPartner) (*models.DeliveryPartner, error) {
	if err := s.db.Create(partner).Error; err != nil {
		return nil, err
	}
	return partner, nil
}

func (s *DatabaseStore) GetDeliveryPartner(id string) (*models.DeliveryPartner, error) {
	var partner models.DeliveryPartner
	err := s.db.First(&partner, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrRecipientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &partner, nil
}

func (s *DatabaseStore) GetLiveDeliveryPartners() ([]*models.DeliveryPartner, error) {
	var partners []*models.DeliveryPartner
	err := s.db.Where("is_live = ?", true).Find(&partners).Error
	return partners, err
}

func (s *DatabaseStore) SetDeliveryPartnerLive(id string, live bool) error {
	res := s.db.Model(&models.DeliveryPartner{}).Where("id = ?", id).Update("is_live", live)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrRecipientNotFound
	}
	return nil
}

// Recipient token operations

func (s *DatabaseStore) GetRecipient(kind models.RecipientKind, id string) (models.Recipient, error) {
	switch kind {
	case models.KindCustomer:
		c, err := s.GetCustomer(id)
		if err != nil {
			return models.Recipient{}, err
		}
		return c.Recipient(), nil
	case models.KindRestaurant:
		r, err := s.GetRestaurant(id)
		if err != nil {
			return models.Recipient{}, err
		}
		return r.Recipient(), nil
	case models.KindDeliveryPartner:
		p, err := s.GetDeliveryPartner(id)
		if err != nil {
			return models.Recipient{}, err
		}
		return p.Recipient(), nil
	}
	return models.Recipient{}, models.ErrRecipientNotFound
}

func (s *DatabaseStore) UpdateRecipientTokens(kind models.RecipientKind, id string, patch models.TokenPatch) error {
	updates := map[string]interface{}{}
	if patch.MobilePushToken != nil {
		updates["mobile_push_token"] = *patch.MobilePushToken
	}
	if patch.WebPushToken != nil {
		updates["web_push_token"] = *patch.WebPushToken
	}
	if len(updates) == 0 {
		return nil
	}

	var model interface{}
	switch kind {
	case models.KindCustomer:
		model = &models.Customer{}
	case models.KindRestaurant:
		model = &models.Restaurant{}
	case models.KindDeliveryPartner:
		model = &models.DeliveryPartner{}
	default:
		return models.ErrRecipientNotFound
	}

	res := s.db.Model(model).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrRecipientNotFound
	}
	return nil
}

func (s *DatabaseStore) ClearRecipientToken(kind models.RecipientKind, id string, channel models.Channel) error {
	empty := ""
	patch := models.TokenPatch{}
	switch channel {
	case models.ChannelMobile:
		patch.MobilePushToken = &empty
	case models.ChannelWeb:
		patch.WebPushToken = &empty
	}
	return s.UpdateRecipientTokens(kind, id, patch)
}
