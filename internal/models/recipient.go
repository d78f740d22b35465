package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecipientKind identifies which party a notification targets.
type RecipientKind string

const (
	KindCustomer        RecipientKind = "customer"
	KindRestaurant      RecipientKind = "restaurant"
	KindDeliveryPartner RecipientKind = "delivery_partner"
)

// Channel is a push-notification transport.
type Channel string

const (
	ChannelMobile Channel = "mobile"
	ChannelWeb    Channel = "web"
)

// Recipient is the dispatcher's view of a notification target: its identity
// plus whatever push tokens were stored at read time. Tokens are read once
// at send time and never cached.
type Recipient struct {
	Kind            RecipientKind
	ID              string
	MobilePushToken string
	WebPushToken    string
}

// TokenPatch updates a recipient's stored push tokens. A nil field is left
// untouched; a pointer to the empty string clears the token.
type TokenPatch struct {
	MobilePushToken *string
	WebPushToken    *string
}

// Customer holds at most one token per channel; re-registration overwrites.
type Customer struct {
	ID           string `gorm:"primaryKey" json:"id"`
	Name         string `json:"name"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Phone        string `json:"phone"`
	PasswordHash string `json:"-"`

	MobilePushToken string `json:"-"`
	WebPushToken    string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Recipient returns the customer's dispatcher view.
func (c *Customer) Recipient() Recipient {
	return Recipient{Kind: KindCustomer, ID: c.ID, MobilePushToken: c.MobilePushToken, WebPushToken: c.WebPushToken}
}

type Restaurant struct {
	ID      string `gorm:"primaryKey" json:"id"`
	Name    string `gorm:"not null" json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`

	MobilePushToken string `json:"-"`
	WebPushToken    string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r *Restaurant) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (r *Restaurant) Recipient() Recipient {
	return Recipient{Kind: KindRestaurant, ID: r.ID, MobilePushToken: r.MobilePushToken, WebPushToken: r.WebPushToken}
}

// DeliveryPartner is live while accepting orders; broadcasts of new orders
// go to every live partner.
type DeliveryPartner struct {
	ID     string `gorm:"primaryKey" json:"id"`
	Name   string `gorm:"not null" json:"name"`
	Phone  string `json:"phone"`
	IsLive bool   `gorm:"index" json:"isLive"`

	MobilePushToken string `json:"-"`
	WebPushToken    string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (d *DeliveryPartner) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

func (d *DeliveryPartner) Recipient() Recipient {
	return Recipient{Kind: KindDeliveryPartner, ID: d.ID, MobilePushToken: d.MobilePushToken, WebPushToken: d.WebPushToken}
}
