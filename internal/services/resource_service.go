package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/isdelr/bizops-api/internal/auth"
	"github.com/isdelr/bizops-api/internal/models"
	"github.com/isdelr/bizops-api/internal/query"
	"github.com/isdelr/bizops-api/internal/schema"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Action names a mutation, used for authorization and event types.
type Action string

const (
	ActionCreate  Action = "created"
	ActionUpdate  Action = "updated"
	ActionDelete  Action = "deleted"
	ActionRestore Action = "restored"
	ActionPurge   Action = "purged"
)

// Record is implemented by every resource model through models.Model.
type Record interface {
	GetID() uint
	Trashed() bool
}

// Resource describes a CRUD resource: its model T, its write payload P and
// the metadata the list and schema endpoints report.
type Resource[T any, P any] struct {
	Name     string // URL segment, plural
	Singular string // Human readable, used in messages
	Query    query.Config
	Preload  []string
	Schema   []schema.Group
	Columns  []schema.Column

	// Apply copies the provided payload fields onto rec. It runs inside the
	// write transaction after the payload passed validation.
	Apply func(ctx context.Context, tx *gorm.DB, p *P, rec *T, creating bool) error

	// Authorize may veto a mutation. rec is nil for creates.
	Authorize func(ctx context.Context, action Action, rec *T) error

	// Label names a record in activity messages.
	Label func(rec *T) string
}

// Validate checks the definition is internally consistent.
func (r *Resource[T, P]) Validate() error {
	if r.Name == "" || r.Singular == "" {
		return fmt.Errorf("resource needs a name and a singular label")
	}
	if r.Apply == nil {
		return fmt.Errorf("resource %s: apply function is required", r.Name)
	}
	if err := r.Query.Validate(); err != nil {
		return fmt.Errorf("resource %s: %w", r.Name, err)
	}
	if err := schema.Validate(r.Schema); err != nil {
		return fmt.Errorf("resource %s: %w", r.Name, err)
	}
	if err := schema.ValidateColumns(r.Columns, r.Query.Sortable, r.Query.Searchable); err != nil {
		return fmt.Errorf("resource %s: %w", r.Name, err)
	}
	return nil
}

// ResourceServiceProvider defines the interface for generic resource services.
type ResourceServiceProvider[T any, P any] interface {
	Definition() *Resource[T, P]
	List(ctx context.Context, p query.Params, reqURL *url.URL) (query.Result[T], error)
	Get(ctx context.Context, id uint) (T, error)
	Create(ctx context.Context, p *P) (T, error)
	Update(ctx context.Context, id uint, p *P) (T, error)
	Delete(ctx context.Context, id uint, force bool) error
	Restore(ctx context.Context, id uint) (T, error)
}

// ResourceService provides the CRUD business logic shared by every resource.
type ResourceService[T any, P any] struct {
	db     *gorm.DB
	def    *Resource[T, P]
	events EventServiceProvider
}

// NewResourceService creates a new ResourceService. events may be nil.
func NewResourceService[T any, P any](db *gorm.DB, def *Resource[T, P], events EventServiceProvider) *ResourceService[T, P] {
	return &ResourceService[T, P]{db: db, def: def, events: events}
}

// Definition returns the resource metadata.
func (s *ResourceService[T, P]) Definition() *Resource[T, P] {
	return s.def
}

// List returns one page of records according to the list parameters.
func (s *ResourceService[T, P]) List(ctx context.Context, p query.Params, reqURL *url.URL) (query.Result[T], error) {
	return query.Run[T](ctx, s.db, s.def.Query, p, reqURL, s.preload)
}

// Get retrieves a single record by its ID.
func (s *ResourceService[T, P]) Get(ctx context.Context, id uint) (T, error) {
	return s.find(s.db.WithContext(ctx), id)
}

// Create validates p and inserts a new record.
func (s *ResourceService[T, P]) Create(ctx context.Context, p *P) (T, error) {
	var rec T
	if err := s.authorize(ctx, ActionCreate, nil); err != nil {
		return rec, err
	}
	if err := ValidatePayload(ctx, p, true); err != nil {
		return rec, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.def.Apply(ctx, tx, p, &rec, true); err != nil {
			return err
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return rec, s.translate(err)
	}

	created, err := s.Get(ctx, recordID(&rec))
	if err != nil {
		return rec, err
	}
	s.record(ctx, ActionCreate, &created)
	return created, nil
}

// Update validates the provided fields of p and saves them onto the record.
func (s *ResourceService[T, P]) Update(ctx context.Context, id uint, p *P) (T, error) {
	var rec T
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if rec, err = s.find(tx, id); err != nil {
			return err
		}
		if err := s.authorize(ctx, ActionUpdate, &rec); err != nil {
			return err
		}
		if err := ValidatePayload(ctx, p, false); err != nil {
			return err
		}
		if err := s.def.Apply(ctx, tx, p, &rec, false); err != nil {
			return err
		}
		return tx.Save(&rec).Error
	})
	if err != nil {
		return rec, s.translate(err)
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return rec, err
	}
	s.record(ctx, ActionUpdate, &updated)
	return updated, nil
}

// Delete soft deletes the record, or removes it permanently when force is set.
// Force deleting an already trashed record is allowed.
func (s *ResourceService[T, P]) Delete(ctx context.Context, id uint, force bool) error {
	var rec T
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if force {
			q = tx.Unscoped()
		}
		if err := q.First(&rec, id).Error; err != nil {
			return err
		}
		if err := s.authorize(ctx, ActionDelete, &rec); err != nil {
			return err
		}
		return q.Delete(&rec).Error
	})
	if err != nil {
		return s.translate(err)
	}

	action := ActionDelete
	if force {
		action = ActionPurge
	}
	s.record(ctx, action, &rec)
	return nil
}

// Restore brings a soft deleted record back. Restoring a live record is a
// no-op and records no activity.
func (s *ResourceService[T, P]) Restore(ctx context.Context, id uint) (T, error) {
	var rec T
	restoredRow := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().First(&rec, id).Error; err != nil {
			return err
		}
		if err := s.authorize(ctx, ActionRestore, &rec); err != nil {
			return err
		}
		if r, ok := any(&rec).(Record); ok && !r.Trashed() {
			return nil
		}
		if err := tx.Unscoped().Model(&rec).Update("deleted_at", nil).Error; err != nil {
			return err
		}
		restoredRow = true
		return nil
	})
	if err != nil {
		return rec, s.translate(err)
	}

	restored, err := s.Get(ctx, id)
	if err != nil {
		return rec, err
	}
	if restoredRow {
		s.record(ctx, ActionRestore, &restored)
	}
	return restored, nil
}

func (s *ResourceService[T, P]) find(db *gorm.DB, id uint) (T, error) {
	var rec T
	if err := s.preload(db).First(&rec, id).Error; err != nil {
		return rec, s.translate(err)
	}
	return rec, nil
}

func (s *ResourceService[T, P]) preload(db *gorm.DB) *gorm.DB {
	for _, rel := range s.def.Preload {
		db = db.Preload(rel)
	}
	return db
}

func (s *ResourceService[T, P]) authorize(ctx context.Context, action Action, rec *T) error {
	if s.def.Authorize == nil {
		return nil
	}
	return s.def.Authorize(ctx, action, rec)
}

func (s *ResourceService[T, P]) translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", s.def.Singular, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", s.def.Singular, ErrConflict)
	}
	return err
}

func (s *ResourceService[T, P]) record(ctx context.Context, action Action, rec *T) {
	if s.events == nil {
		return
	}
	id := recordID(rec)
	label := fmt.Sprintf("#%d", id)
	if s.def.Label != nil {
		label = s.def.Label(rec)
	}

	event := models.Event{
		Type:     fmt.Sprintf("%s.%s", strings.ReplaceAll(strings.ToLower(s.def.Singular), " ", "_"), action),
		Level:    "info",
		Message:  fmt.Sprintf("%s %s %s", schema.Capitalize(s.def.Singular), label, action),
		Resource: s.def.Name,
		RecordID: &id,
		ActorID:  auth.ActorID(ctx),
	}
	if action == ActionPurge {
		event.Level = "warn"
	}
	if err := s.events.Record(ctx, event); err != nil {
		log.Error().Err(err).Str("resource", s.def.Name).Uint("record_id", id).Msg("Failed to record activity event")
	}
}

func recordID(rec any) uint {
	if r, ok := rec.(Record); ok {
		return r.GetID()
	}
	return 0
}
