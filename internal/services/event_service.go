package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/bizops-api/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// MaxRecentEvents caps how many events one activity request may return.
const MaxRecentEvents = 200

// EventPublisher forwards recorded events to live consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event models.Event) error
}

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	Record(ctx context.Context, event models.Event) error
	GetRecentEvents(ctx context.Context, limit int, resource string) ([]models.Event, error)
}

// EventService stores activity events and fans them out to publishers.
type EventService struct {
	db         *gorm.DB
	publishers []EventPublisher
}

// NewEventService creates a new EventService.
func NewEventService(db *gorm.DB, publishers ...EventPublisher) *EventService {
	return &EventService{db: db, publishers: publishers}
}

// Record logs a new event to the database, then publishes it.
// Publisher failures are logged and never fail the call.
func (s *EventService) Record(ctx context.Context, event models.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Level == "" {
		event.Level = "info"
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("failed to store event: %w", err)
	}

	for _, p := range s.publishers {
		if err := p.Publish(ctx, event); err != nil {
			log.Warn().Err(err).Str("event_type", event.Type).Msg("Failed to publish event")
		}
	}
	return nil
}

// GetRecentEvents retrieves the most recent events, optionally for one resource.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int, resource string) ([]models.Event, error) {
	if limit <= 0 || limit > MaxRecentEvents {
		limit = MaxRecentEvents
	}

	q := s.db.WithContext(ctx).Order("created_at DESC").Order("id").Limit(limit)
	if resource != "" {
		q = q.Where("resource = ?", resource)
	}

	events := make([]models.Event, 0, limit)
	if err := q.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	return events, nil
}
