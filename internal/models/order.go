package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDispatch  OrderStatus = "dispatch"
	StatusDelivered OrderStatus = "delivered"
	StatusRejected  OrderStatus = "rejected"
)

// GSTRate is applied to the items amount once, at order creation.
const GSTRate = 0.05

// Valid reports whether s is a known lifecycle status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusDispatch, StatusDelivered, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether an order in this status is closed for further
// transitions. Delivered and rejected orders are retained for history.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusRejected
}

// OrderAddon is an extra attached to a single order item.
type OrderAddon struct {
	Name       string  `json:"name"`
	ExtraPrice float64 `json:"extraPrice"`
}

// OrderItem is one line of an order. BasePrice is the menu price before
// discount; TotalPrice includes quantity and add-ons.
type OrderItem struct {
	ID              string       `gorm:"primaryKey" json:"id"`
	OrderID         string       `gorm:"index" json:"orderId"`
	MenuItemID      string       `gorm:"not null" json:"menuItemId"`
	Quantity        int          `gorm:"not null" json:"quantity"`
	BasePrice       float64      `json:"basePrice"`
	Addons          []OrderAddon `gorm:"serializer:json" json:"addons,omitempty"`
	TotalAddonPrice float64      `json:"totalAddonPrice"`
	TotalPrice      float64      `json:"totalPrice"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// Order is created with status pending and mutated only through guarded
// status transitions. Monetary fields are computed once at creation:
// GST = ItemsAmount * GSTRate, TotalAmount = ItemsAmount + GST.
type Order struct {
	ID     string      `gorm:"primaryKey" json:"id"`
	Status OrderStatus `gorm:"not null;index" json:"status"`

	CustomerID        string  `gorm:"not null;index" json:"customerId"`
	RestaurantID      string  `gorm:"not null;index" json:"restaurantId"`
	DeliveryPartnerID *string `gorm:"index" json:"deliveryPartnerId"`

	ItemsAmount float64 `json:"itemsAmount"`
	GST         float64 `json:"gst"`
	DeliveryFee float64 `json:"deliveryFee"`
	TotalAmount float64 `json:"totalAmount"`

	PaymentType   string  `json:"paymentType"`
	OrderType     string  `json:"orderType"`
	Address       string  `json:"address"`
	CustomerNotes string  `json:"customerNotes"`
	Distance      float64 `json:"distance"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`

	PlacedAt  time.Time `gorm:"autoCreateTime" json:"placedAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// transitionGuards holds per-target preconditions. Only dispatch is guarded
// today; adding a row here is the extension point for tightening the rest of
// the table (pending product clarification).
var transitionGuards = map[OrderStatus]func(o *Order) *InvalidTransitionError{
	StatusDispatch: guardDispatch,
}

func guardDispatch(o *Order) *InvalidTransitionError {
	if o.Status != StatusReady {
		return &InvalidTransitionError{From: o.Status, To: StatusDispatch, Reason: "order must be in ready state to dispatch"}
	}
	if o.DeliveryPartnerID == nil || *o.DeliveryPartnerID == "" {
		return &InvalidTransitionError{From: o.Status, To: StatusDispatch, Reason: "no delivery partner has accepted this order"}
	}
	return nil
}

// GuardTransition checks whether o may move to target. It never mutates o.
func GuardTransition(o *Order, target OrderStatus) error {
	if o.Status.Terminal() {
		return &InvalidTransitionError{From: o.Status, To: target, Reason: "order is already " + string(o.Status)}
	}
	if guard, ok := transitionGuards[target]; ok {
		if err := guard(o); err != nil {
			return err
		}
	}
	return nil
}
