package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEstimate_Recalculate(t *testing.T) {
	e := Estimate{Items: []EstimateItem{
		{Description: "Consulting", Quantity: 3, UnitPrice: 99.99},
		{Description: "Setup", Quantity: 0.5, UnitPrice: 12.5},
	}}

	e.Recalculate()

	assert.Equal(t, 299.97, e.Items[0].LineTotal)
	assert.Equal(t, 6.25, e.Items[1].LineTotal)
	assert.Equal(t, 306.22, e.Total)
}

func TestEstimate_RecalculateEmpty(t *testing.T) {
	e := Estimate{Total: 42}
	e.Recalculate()
	assert.Zero(t, e.Total)
}

func TestEstimateStatus_IsFinal(t *testing.T) {
	assert.False(t, EstimateStatusDraft.IsFinal())
	assert.False(t, EstimateStatusSent.IsFinal())
	assert.True(t, EstimateStatusAccepted.IsFinal())
	assert.True(t, EstimateStatusRejected.IsFinal())
	assert.True(t, EstimateStatusExpired.IsFinal())
}

func TestExpiryCutoff(t *testing.T) {
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	assert.True(t, ExpiryCutoff(now).Equal(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)))

	// 23:30 in New York is already the next UTC day.
	ny := time.FixedZone("EST", -5*3600)
	late := time.Date(2026, 10, 19, 23, 30, 0, 0, ny)
	assert.True(t, ExpiryCutoff(late).Equal(time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)))
}
