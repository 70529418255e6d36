package monitoring

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/isdelr/bizops-api/internal/models"
	"github.com/isdelr/bizops-api/internal/services"
	"github.com/isdelr/bizops-api/internal/telemetry"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats is a snapshot of the machine the API runs on.
type HostStats struct {
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	MemoryUsed    uint64    `json:"memory_used"`
	MemoryTotal   uint64    `json:"memory_total"`
	Load1         float64   `json:"load1"`
	Goroutines    int       `json:"goroutines"`
	SampledAt     time.Time `json:"sampled_at"`
}

// Sampler reads current host statistics.
type Sampler func(ctx context.Context) (HostStats, error)

// StatUpdater periodically samples host statistics, feeds the metrics gauges
// and raises an activity event when CPU stays high.
type StatUpdater struct {
	sample   Sampler
	eventSvc services.EventServiceProvider
	interval time.Duration
	ticker   *time.Ticker
	done     chan bool

	mu           sync.RWMutex
	latest       HostStats
	lastCPUAlert time.Time
}

// NewStatUpdater creates a new StatUpdater. eventSvc may be nil.
func NewStatUpdater(eventSvc services.EventServiceProvider) *StatUpdater {
	return &StatUpdater{
		sample:   SampleHost,
		eventSvc: eventSvc,
		interval: 15 * time.Second,
		done:     make(chan bool),
	}
}

// Run starts the periodic updates.
func (su *StatUpdater) Run() {
	log.Info().Msg("Starting background stat updater...")
	su.ticker = time.NewTicker(su.interval)
	defer su.ticker.Stop()

	// Run once immediately on start
	su.update(context.Background())

	for {
		select {
		case <-su.done:
			log.Info().Msg("Stopping background stat updater.")
			return
		case <-su.ticker.C:
			su.update(context.Background())
		}
	}
}

// Stop halts the periodic updates.
func (su *StatUpdater) Stop() {
	su.done <- true
}

// Latest returns the most recent snapshot, sampling on demand when none was taken yet.
func (su *StatUpdater) Latest(ctx context.Context) HostStats {
	su.mu.RLock()
	latest := su.latest
	su.mu.RUnlock()
	if !latest.SampledAt.IsZero() {
		return latest
	}
	su.update(ctx)

	su.mu.RLock()
	defer su.mu.RUnlock()
	return su.latest
}

func (su *StatUpdater) update(ctx context.Context) {
	stats, err := su.sample(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("StatUpdater: Failed to sample host stats")
		return
	}

	su.mu.Lock()
	su.latest = stats
	su.mu.Unlock()

	telemetry.SetHostUsage(stats.CPUPercent, stats.MemoryPercent)
	su.checkAndAlertForHighCPU(ctx, stats)
}

func (su *StatUpdater) checkAndAlertForHighCPU(ctx context.Context, stats HostStats) {
	const highCPUThreshold = 90.0
	const alertCooldown = 15 * time.Minute

	if stats.CPUPercent <= highCPUThreshold || su.eventSvc == nil {
		return
	}

	su.mu.Lock()
	if !su.lastCPUAlert.IsZero() && stats.SampledAt.Sub(su.lastCPUAlert) < alertCooldown {
		su.mu.Unlock()
		return
	}
	su.lastCPUAlert = stats.SampledAt
	su.mu.Unlock()

	msg := fmt.Sprintf("High CPU usage (%.1f%%) detected on the API host.", stats.CPUPercent)
	err := su.eventSvc.Record(ctx, models.Event{Type: "system.alert.cpu", Level: "warn", Message: msg, Resource: "system"})
	if err != nil {
		log.Error().Err(err).Msg("StatUpdater: Failed to record CPU alert")
	}
}

// SampleHost reads statistics from the operating system.
func SampleHost(ctx context.Context) (HostStats, error) {
	stats := HostStats{Goroutines: runtime.NumGoroutine(), SampledAt: time.Now().UTC()}

	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return HostStats{}, fmt.Errorf("failed to read cpu usage: %w", err)
	}
	if len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return HostStats{}, fmt.Errorf("failed to read memory usage: %w", err)
	}
	stats.MemoryPercent = vm.UsedPercent
	stats.MemoryUsed = vm.Used
	stats.MemoryTotal = vm.Total

	// Load averages are not available everywhere.
	if avg, err := load.AvgWithContext(ctx); err == nil {
		stats.Load1 = avg.Load1
	}
	return stats, nil
}
