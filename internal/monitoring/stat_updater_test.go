package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/isdelr/bizops-api/internal/models"
)

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) Record(ctx context.Context, event models.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEvents) GetRecentEvents(ctx context.Context, limit int, resource string) ([]models.Event, error) {
	args := m.Called(ctx, limit, resource)
	return args.Get(0).([]models.Event), args.Error(1)
}

func TestStatUpdater_LatestSamplesOnDemand(t *testing.T) {
	su := NewStatUpdater(nil)
	calls := 0
	su.sample = func(context.Context) (HostStats, error) {
		calls++
		return HostStats{CPUPercent: 10, SampledAt: time.Now()}, nil
	}

	assert.Equal(t, 10.0, su.Latest(context.Background()).CPUPercent)
	su.Latest(context.Background())
	assert.Equal(t, 1, calls)
}

func TestStatUpdater_SampleErrorKeepsPrevious(t *testing.T) {
	su := NewStatUpdater(nil)
	su.sample = func(context.Context) (HostStats, error) {
		return HostStats{CPUPercent: 5, SampledAt: time.Now()}, nil
	}
	su.update(context.Background())

	su.sample = func(context.Context) (HostStats, error) {
		return HostStats{}, errors.New("no /proc")
	}
	su.update(context.Background())
	assert.Equal(t, 5.0, su.Latest(context.Background()).CPUPercent)
}

func TestStatUpdater_HighCPUAlertHasCooldown(t *testing.T) {
	events := &mockEvents{}
	events.On("Record", mock.Anything, mock.MatchedBy(func(e models.Event) bool {
		return e.Type == "system.alert.cpu" && e.Level == "warn"
	})).Return(nil)

	su := NewStatUpdater(events)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, offset := range []time.Duration{0, 5 * time.Minute, 16 * time.Minute} {
		at := start.Add(offset)
		su.sample = func(context.Context) (HostStats, error) {
			return HostStats{CPUPercent: 97, SampledAt: at}, nil
		}
		su.update(context.Background())
	}

	events.AssertNumberOfCalls(t, "Record", 2)
}

func TestStatUpdater_RunAndStop(t *testing.T) {
	su := NewStatUpdater(nil)
	su.sample = func(context.Context) (HostStats, error) { return HostStats{SampledAt: time.Now()}, nil }

	stopped := make(chan struct{})
	go func() {
		su.Run()
		close(stopped)
	}()
	su.Stop()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stat updater did not stop")
	}
}
