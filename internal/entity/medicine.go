package entity

import (
	"time"

	"github.com/google/uuid"
)

// Medicine is an inventory item. Name is unique; stock is never negative.
type Medicine struct {
	ID            uuid.UUID `json:"id" toml:"-"`
	Name          string    `json:"name" toml:"name"`
	Composition   string    `json:"composition,omitempty" toml:"composition"`
	StockQuantity int       `json:"stock_quantity" toml:"stock_quantity"`
	Manufacturer  string    `json:"manufacturer,omitempty" toml:"manufacturer"`
	CreatedAt     time.Time `json:"created_at" toml:"-"`
	UpdatedAt     time.Time `json:"updated_at" toml:"-"`
}

func (m Medicine) IsAvailable() bool {
	return m.StockQuantity > 0
}

// Alternative is a directed link: AlternativeID may substitute for MedicineID.
type Alternative struct {
	ID            uuid.UUID `json:"id"`
	MedicineID    uuid.UUID `json:"medicine_id"`
	AlternativeID uuid.UUID `json:"alternative_id"`
	CreatedAt     time.Time `json:"created_at"`
}
