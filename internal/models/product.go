package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Product struct {
	ID          string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SKU         string    `json:"sku" gorm:"unique;not null"`
	Title       string    `json:"title" gorm:"not null"`
	Description *string   `json:"description"`
	Price       float64   `json:"price" gorm:"type:decimal(10,2)"`
	SalePrice   *float64  `json:"sale_price" gorm:"type:decimal(10,2)"`
	Currency    string    `json:"currency" gorm:"default:USD"`
	Quantity    int       `json:"quantity" gorm:"default:0"`
	Enabled     bool      `json:"enabled" gorm:"default:true"`
	SyncEnabled bool      `json:"sync_enabled" gorm:"default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// EffectiveSalePrice is the price pushed to the marketplace as the sale
// price; it falls back to the list price when no special is set.
func (p *Product) EffectiveSalePrice() float64 {
	if p.SalePrice != nil && *p.SalePrice > 0 {
		return *p.SalePrice
	}
	return p.Price
}
