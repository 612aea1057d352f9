package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is a marketplace order pulled into the local store. Orders are
// pull-only: OrderNumber is the marketplace-assigned idempotency key and
// upserts by it keep repeated deliveries from creating duplicates.
type Order struct {
	ID            string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrderNumber   string    `json:"order_number" gorm:"unique;not null"`
	Status        string    `json:"status" gorm:"default:Created"`
	GrossAmount   float64   `json:"gross_amount" gorm:"type:decimal(10,2)"`
	TotalDiscount float64   `json:"total_discount" gorm:"type:decimal(10,2)"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	OrderDate     time.Time `json:"order_date"`
	TrackingNo    *string   `json:"tracking_no"`
	CargoProvider *string   `json:"cargo_provider"`
	LocalStatusID int       `json:"local_status_id" gorm:"default:1"`
	Payload       *string   `json:"payload"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}
