package models

import "time"

// Event represents a loggable action on a resource.
type Event struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Type      string    `gorm:"size:100;not null;index" json:"type"` // e.g., "product.created", "user.deleted"
	Level     string    `gorm:"size:10;not null" json:"level"`       // e.g., "info", "warn", "error"
	Message   string    `gorm:"size:500;not null" json:"message"`
	Resource  string    `gorm:"size:50;index" json:"resource"`
	RecordID  *uint     `json:"record_id,omitempty"`
	ActorID   *uint     `json:"actor_id,omitempty"` // Nullable for system events
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
