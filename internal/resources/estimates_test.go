package resources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/bizops-api/internal/database/databasetest"
	"github.com/isdelr/bizops-api/internal/models"
)

func TestPastValidDate(t *testing.T) {
	db := databasetest.New(t)
	today := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	fixtures := []models.Estimate{
		{Number: "EST-TODAY", CustomerName: "a", Status: models.EstimateStatusSent, ValidUntil: &today},
		{Number: "EST-YESTERDAY", CustomerName: "b", Status: models.EstimateStatusDraft, ValidUntil: &yesterday},
		{Number: "EST-ACCEPTED", CustomerName: "c", Status: models.EstimateStatusAccepted, ValidUntil: &yesterday},
		{Number: "EST-OPEN", CustomerName: "d", Status: models.EstimateStatusDraft},
	}
	require.NoError(t, db.Create(&fixtures).Error)

	due := func(now time.Time) []string {
		var numbers []string
		require.NoError(t, db.Model(&models.Estimate{}).Scopes(PastValidDate(func() time.Time { return now })).
			Order("number").Pluck("number", &numbers).Error)
		return numbers
	}

	assert.Equal(t, []string{"EST-YESTERDAY"}, due(today.Add(10*time.Hour)))
	assert.Equal(t, []string{"EST-TODAY", "EST-YESTERDAY"}, due(today.AddDate(0, 0, 1)))
}

func TestNewEstimateNumber(t *testing.T) {
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	n := NewEstimateNumber(now)
	assert.Regexp(t, `^EST-20261019-[0-9A-F]{6}$`, n)
	assert.NotEqual(t, n, NewEstimateNumber(now))
}
