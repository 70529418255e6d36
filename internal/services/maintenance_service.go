package services

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/bizops-api/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// MaintenanceServiceProvider defines the periodic housekeeping jobs.
type MaintenanceServiceProvider interface {
	PurgeTrashed(ctx context.Context, before time.Time) (int64, error)
	ExpireEstimates(ctx context.Context, now time.Time) (int64, error)
}

// MaintenanceService removes stale data and advances time based state.
type MaintenanceService struct {
	db     *gorm.DB
	events EventServiceProvider
}

// NewMaintenanceService creates a new MaintenanceService. events may be nil.
func NewMaintenanceService(db *gorm.DB, events EventServiceProvider) *MaintenanceService {
	return &MaintenanceService{db: db, events: events}
}

// PurgeTrashed permanently deletes rows soft deleted before the cutoff and
// returns how many were removed.
func (s *MaintenanceService) PurgeTrashed(ctx context.Context, before time.Time) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Unscoped().Model(&models.Estimate{}).Select("id").Where("deleted_at IS NOT NULL AND deleted_at < ?", before)
		if err := tx.Where("estimate_id IN (?)", stale).Delete(&models.EstimateItem{}).Error; err != nil {
			return fmt.Errorf("failed to purge estimate items: %w", err)
		}

		for _, model := range []interface{}{&models.Estimate{}, &models.Product{}, &models.User{}} {
			res := tx.Unscoped().Where("deleted_at IS NOT NULL AND deleted_at < ?", before).Delete(model)
			if res.Error != nil {
				return fmt.Errorf("failed to purge %T: %w", model, res.Error)
			}
			total += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if total > 0 {
		log.Info().Int64("rows", total).Time("before", before).Msg("Purged soft deleted records")
		s.record(ctx, "maintenance.purged", "warn", fmt.Sprintf("Purged %d soft deleted records", total))
	}
	return total, nil
}

// ExpireEstimates marks draft and sent estimates past their valid-until date as
// expired. An estimate is still valid on its valid-until day.
func (s *MaintenanceService) ExpireEstimates(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Estimate{}).
		Where("status IN ?", []models.EstimateStatus{models.EstimateStatusDraft, models.EstimateStatusSent}).
		Where("valid_until IS NOT NULL AND valid_until < ?", models.ExpiryCutoff(now)).
		UpdateColumns(map[string]interface{}{"status": models.EstimateStatusExpired, "updated_at": now})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to expire estimates: %w", res.Error)
	}

	if res.RowsAffected > 0 {
		log.Info().Int64("estimates", res.RowsAffected).Msg("Expired overdue estimates")
		s.record(ctx, "estimate.expired", "info", fmt.Sprintf("Expired %d overdue estimates", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

func (s *MaintenanceService) record(ctx context.Context, eventType, level, message string) {
	if s.events == nil {
		return
	}
	err := s.events.Record(ctx, models.Event{Type: eventType, Level: level, Message: message, Resource: "system"})
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("Failed to record maintenance event")
	}
}
