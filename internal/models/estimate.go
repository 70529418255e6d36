package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// EstimateStatus represents the lifecycle of an estimate.
type EstimateStatus string

const (
	EstimateStatusDraft    EstimateStatus = "draft"
	EstimateStatusSent     EstimateStatus = "sent"
	EstimateStatusAccepted EstimateStatus = "accepted"
	EstimateStatusRejected EstimateStatus = "rejected"
	EstimateStatusExpired  EstimateStatus = "expired"
)

// EstimateStatuses lists every status in display order.
var EstimateStatuses = []EstimateStatus{
	EstimateStatusDraft,
	EstimateStatusSent,
	EstimateStatusAccepted,
	EstimateStatusRejected,
	EstimateStatusExpired,
}

// IsFinal reports whether no further transition is expected.
func (s EstimateStatus) IsFinal() bool {
	return s == EstimateStatusAccepted || s == EstimateStatusRejected || s == EstimateStatusExpired
}

// ExpiryCutoff returns the start of now's UTC day. Valid-until dates are
// stored at midnight UTC and stay valid through that whole day, so only
// dates before the cutoff have lapsed.
func ExpiryCutoff(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Estimate is a priced quote for a customer. Total is always derived from Items.
type Estimate struct {
	Model
	Number        string         `gorm:"size:32;not null;uniqueIndex" json:"number"`
	CustomerName  string         `gorm:"size:255;not null" json:"customer_name"`
	CustomerEmail string         `gorm:"size:255" json:"customer_email"`
	Status        EstimateStatus `gorm:"size:20;not null;index" json:"status"`
	ValidUntil    *time.Time     `json:"valid_until"`
	Notes         string         `gorm:"type:text" json:"notes"`
	Total         float64        `gorm:"not null" json:"total"`
	Items         []EstimateItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`

	replaceItems bool
}

// EstimateItem is a single priced line of an estimate.
type EstimateItem struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	EstimateID  uint    `gorm:"not null;index" json:"estimate_id"`
	ProductID   *uint   `gorm:"index" json:"product_id"`
	Description string  `gorm:"size:500;not null" json:"description"`
	Quantity    float64 `gorm:"not null" json:"quantity"`
	UnitPrice   float64 `gorm:"not null" json:"unit_price"`
	LineTotal   float64 `gorm:"not null" json:"line_total"`
}

// ReplaceItems swaps the item list; rows no longer listed are removed on the next save.
func (e *Estimate) ReplaceItems(items []EstimateItem) {
	e.Items = items
	e.replaceItems = true
}

// Recalculate derives line totals and the estimate total from the items.
func (e *Estimate) Recalculate() {
	var total float64
	for i := range e.Items {
		e.Items[i].LineTotal = roundCents(e.Items[i].Quantity * e.Items[i].UnitPrice)
		total += e.Items[i].LineTotal
	}
	e.Total = roundCents(total)
}

// BeforeSave keeps Total consistent with Items.
func (e *Estimate) BeforeSave(tx *gorm.DB) error {
	e.Recalculate()
	return nil
}

// AfterSave drops items that were replaced away.
func (e *Estimate) AfterSave(tx *gorm.DB) error {
	if !e.replaceItems {
		return nil
	}
	e.replaceItems = false

	keep := make([]uint, 0, len(e.Items))
	for _, item := range e.Items {
		keep = append(keep, item.ID)
	}
	q := tx.Session(&gorm.Session{NewDB: true}).Where("estimate_id = ?", e.ID)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	return q.Delete(&EstimateItem{}).Error
}

// BeforeDelete removes the items when the estimate is deleted permanently.
func (e *Estimate) BeforeDelete(tx *gorm.DB) error {
	if !tx.Statement.Unscoped || e.ID == 0 {
		return nil
	}
	return tx.Session(&gorm.Session{NewDB: true}).Where("estimate_id = ?", e.ID).Delete(&EstimateItem{}).Error
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
