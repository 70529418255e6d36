package models

// Product represents a sellable item in the catalogue.
type Product struct {
	Model
	Name        string  `gorm:"size:255;not null;index" json:"name"`
	SKU         string  `gorm:"size:100;not null;uniqueIndex" json:"sku"`
	Description string  `gorm:"type:text" json:"description"`
	Price       float64 `gorm:"not null" json:"price"`
	Stock       int     `gorm:"not null" json:"stock"`
	Active      bool    `gorm:"not null" json:"active"`
}
