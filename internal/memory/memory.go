package memory

import (
	"context"
	"math"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/mem"

	"video-compressor/internal/logging"
	"video-compressor/internal/metrics"
)

// Config holds memory management configuration
type Config struct {
	// MemoryLimitBytes is the heap limit (0 = use GOMEMLIMIT if set)
	MemoryLimitBytes int64

	// HighWaterMark is the heap share below which a paused monitor resumes (0.0-1.0)
	HighWaterMark float64

	// CriticalWaterMark is the heap share at which the monitor pauses (0.0-1.0)
	CriticalWaterMark float64

	// HostMinAvailableBytes pauses the monitor when host available memory
	// drops below it. 0 disables the host check.
	HostMinAvailableBytes uint64

	// CheckInterval is how often to sample memory usage
	CheckInterval time.Duration
}

// DefaultConfig returns sensible defaults for memory management
func DefaultConfig() Config {
	return Config{
		MemoryLimitBytes:      0,
		HighWaterMark:         0.7,
		CriticalWaterMark:     0.85,
		HostMinAvailableBytes: 256 << 20,
		CheckInterval:         5 * time.Second,
	}
}

func hostAvailable(ctx context.Context) (uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Monitor tracks memory usage and provides backpressure signals
type Monitor struct {
	config   Config
	limit    int64
	stopChan chan struct{}
	stopOnce sync.Once

	sampleHeap func() uint64
	sampleHost func(context.Context) (uint64, error)

	mu            sync.RWMutex
	current       uint64
	hostAvailable uint64
	isPaused      bool
}

// NewMonitor creates a new memory monitor
func NewMonitor(config Config) *Monitor {
	limit := config.MemoryLimitBytes

	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < 1<<62 {
			limit = goMemLimit
			logging.Info("Memory monitor using GOMEMLIMIT: %s", formatBytes(limit))
		}
	}

	if limit == 0 && config.HostMinAvailableBytes == 0 {
		logging.Warn("Memory monitor: no memory limit configured, backpressure disabled")
	}

	return &Monitor{
		config:     config,
		limit:      limit,
		stopChan:   make(chan struct{}),
		sampleHeap: heapAlloc,
		sampleHost: hostAvailable,
	}
}

// Start begins monitoring memory usage
func (m *Monitor) Start() {
	if m.limit == 0 && m.config.HostMinAvailableBytes == 0 {
		return
	}
	if m.config.CheckInterval <= 0 {
		m.config.CheckInterval = DefaultConfig().CheckInterval
	}

	go m.monitorLoop()
}

// Stop stops the memory monitor. Safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func (m *Monitor) monitorLoop() {
	m.checkMemory()

	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.checkMemory()
		case <-m.stopChan:
			return
		}
	}
}

func (m *Monitor) checkMemory() {
	alloc := m.sampleHeap()

	var available uint64
	hostLow := false
	if m.config.HostMinAvailableBytes > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		avail, err := m.sampleHost(ctx)
		cancel()
		if err != nil {
			logging.Debug("Host memory sample failed: %v", err)
		} else {
			available = avail
			hostLow = avail < m.config.HostMinAvailableBytes
			metrics.HostMemoryAvailableBytes.Set(float64(avail))
		}
	}

	var usage float64
	if m.limit > 0 {
		usage = float64(alloc) / float64(m.limit)
		metrics.MemoryUsageRatio.Set(usage)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = alloc
	m.hostAvailable = available

	critical := hostLow || (m.limit > 0 && usage >= m.config.CriticalWaterMark)
	recovered := !hostLow && (m.limit == 0 || usage < m.config.HighWaterMark)

	switch {
	case critical && !m.isPaused:
		logging.Warn("Memory critical (heap %.1f%% of limit, host available %s), refusing uploads",
			usage*100, formatBytes(int64(min(available, math.MaxInt64))))
		m.isPaused = true
		metrics.MemoryPaused.Set(1)
		metrics.MemoryGCPauses.Inc()
		go runtime.GC()
	case recovered && m.isPaused:
		logging.Info("Memory recovered (heap %.1f%% of limit), accepting uploads", usage*100)
		m.isPaused = false
		metrics.MemoryPaused.Set(0)
	}
}

// IsPaused reports whether new work should be refused.
func (m *Monitor) IsPaused() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isPaused
}

// GetUsage returns heap usage as a fraction of the limit (0.0-1.0).
// Returns 0 if no limit is configured.
func (m *Monitor) GetUsage() float64 {
	if m.limit == 0 {
		return 0
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return float64(m.current) / float64(m.limit)
}

// GetStats returns current memory statistics
func (m *Monitor) GetStats() (current, limit int64, usage float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	currentInt64 := int64(min(m.current, math.MaxInt64))

	var usageRatio float64
	if m.limit > 0 {
		usageRatio = float64(m.current) / float64(m.limit)
	}

	return currentInt64, m.limit, usageRatio
}

// HostAvailable returns the last sampled host available memory in bytes.
func (m *Monitor) HostAvailable() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hostAvailable
}
