package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"      json:"id"`
	Name         string    `gorm:"not null"                  json:"name"`
	Email        string    `gorm:"uniqueIndex;not null"      json:"email"`
	PasswordHash string    `gorm:"not null"                  json:"-"`
	CreatedAt    time.Time `gorm:"not null"                  json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

const OrderStatusPending = "pending"

type Order struct {
	ID              uuid.UUID   `gorm:"type:uuid;primaryKey"        json:"id"`
	UserID          uuid.UUID   `gorm:"type:uuid;index;not null;index:idx_orders_user_request,unique,priority:1" json:"user_id"`
	Items           []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	Subtotal        float64     `gorm:"not null"                    json:"subtotal"`
	ShippingFee     float64     `gorm:"not null"                    json:"shipping_fee"`
	TotalAmount     float64     `gorm:"not null"                    json:"total_amount"`
	Status          string      `gorm:"not null;default:pending"    json:"status"`
	// The partial unique index makes request-id dedup hold under
	// concurrent retries; orders without an id stay unconstrained.
	ClientRequestID string `gorm:"index:idx_orders_user_request,unique,priority:2,where:client_request_id <> ''" json:"client_request_id,omitempty"`
	CreatedAt       time.Time   `gorm:"not null;index"              json:"created_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

type OrderItem struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"      json:"-"`
	OrderID    uuid.UUID `gorm:"type:uuid;index;not null"  json:"-"`
	ProductRef string    `gorm:"not null"                  json:"id"`
	Name       string    `gorm:"not null"                  json:"name"`
	UnitPrice  float64   `gorm:"not null"                  json:"price"`
	Quantity   int       `gorm:"not null;check:quantity>0" json:"quantity"`
	Image      string    `gorm:"not null"                  json:"image"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"not null"             json:"name"`
	Description string    `gorm:"not null"             json:"description"`
	Price       float64   `gorm:"not null"             json:"price"`
	Image       string    `json:"image"`
	CreatedAt   time.Time `gorm:"not null"             json:"created_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
