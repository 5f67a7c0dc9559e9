package catalog

import (
	"time"
)

// Product описывает товар каталога. Цена в копейках.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	SKU         string    `json:"sku"`
	Category    string    `json:"category"`
	Price       int64     `json:"price"`
	Stock       int       `json:"stock"`
	Unit        string    `json:"unit"`
	Active      bool      `json:"active"`
	LastUpdated time.Time `json:"last_updated"`
}

type Customer struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	Address     string    `json:"address,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}
