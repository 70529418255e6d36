package models

import (
	"time"

	"gorm.io/gorm"
)

// Model is the base embedded by every resource row. JSON keys mirror the
// column names so list columns, sort keys and payload fields share one vocabulary.
type Model struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// All returns every model managed by migrations, in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Product{},
		&Estimate{},
		&EstimateItem{},
		&Event{},
	}
}

// GetID returns the primary key.
func (m Model) GetID() uint {
	return m.ID
}

// Trashed reports whether the row is soft deleted.
func (m Model) Trashed() bool {
	return m.DeletedAt.Valid
}
