package metrics

import (
	"time"

	"video-compressor/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current session statistics
type Stats struct {
	ActiveSessions int
	// ByStage counts sessions per stage label (see Stages).
	ByStage map[string]int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	ActiveSessions.Set(float64(stats.ActiveSessions))
	for _, stage := range Stages {
		SessionsByStage.WithLabelValues(stage).Set(float64(stats.ByStage[stage]))
	}

	logging.Debug("Metrics collected: sessions=%d compressing=%d completed=%d",
		stats.ActiveSessions, stats.ByStage["compressing"], stats.ByStage["completed"])
}
