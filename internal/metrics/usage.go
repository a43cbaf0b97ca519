package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v4/process"
)

// Usage is one resource sample of the recorder process.
type Usage struct {
	PID        int32     `json:"pid"`
	CPUPercent float64   `json:"cpu_percent"`
	MemoryMB   float64   `json:"memory_mb"`
	MemoryRSS  uint64    `json:"memory_rss"`
	NumThreads int32     `json:"num_threads"`
	NumFDs     int32     `json:"num_fds,omitempty"` // Unix only
	Timestamp  time.Time `json:"timestamp"`
}

// UsageConfig controls periodic sampling of the recorder.
type UsageConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Interval    time.Duration `mapstructure:"interval"`
	HistorySize int           `mapstructure:"history_size"`
}

// UsageCollector samples one PID on an interval and keeps a bounded history.
type UsageCollector struct {
	enabled  bool
	interval time.Duration

	mu      sync.RWMutex
	ring    []Usage
	start   int
	count   int
	lastPID int32

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	cpuPercent prometheus.Gauge
	memoryMB   prometheus.Gauge
	numThreads prometheus.Gauge
}

func NewUsageCollector(cfg UsageConfig) *UsageCollector {
	size := cfg.HistorySize
	if size <= 0 {
		size = 60
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &UsageCollector{
		enabled:  cfg.Enabled,
		interval: interval,
		ring:     make([]Usage, size),
		stopCh:   make(chan struct{}),
		cpuPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "recorder", Name: "cpu_percent",
			Help: "CPU usage percentage of the recorder.",
		}),
		memoryMB: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "recorder", Name: "memory_mb",
			Help: "Resident memory of the recorder in MB.",
		}),
		numThreads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "recorder", Name: "num_threads",
			Help: "Thread count of the recorder.",
		}),
	}
}

func (c *UsageCollector) Enabled() bool { return c != nil && c.enabled }

// RegisterMetrics registers the usage gauges with r.
func (c *UsageCollector) RegisterMetrics(r prometheus.Registerer) error {
	if !c.Enabled() {
		return nil
	}
	for _, col := range []prometheus.Collector{c.cpuPercent, c.memoryMB, c.numThreads} {
		if err := r.Register(col); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// Start samples the PID returned by pid on every tick; 0 means nothing to sample.
func (c *UsageCollector) Start(ctx context.Context, pid func() int32) {
	if !c.Enabled() {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		t := time.NewTicker(c.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-t.C:
				c.Collect(pid())
			}
		}
	}()
}

func (c *UsageCollector) Stop() {
	if !c.Enabled() {
		return
	}
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

// Collect takes one sample of pid and appends it to the history.
// A PID change resets the history.
func (c *UsageCollector) Collect(pid int32) {
	if pid <= 0 {
		c.mu.Lock()
		c.lastPID = 0
		c.mu.Unlock()
		c.cpuPercent.Set(0)
		c.memoryMB.Set(0)
		c.numThreads.Set(0)
		return
	}
	u, err := Sample(pid)
	if err != nil {
		slog.Debug("usage sample failed", "pid", pid, "error", err)
		return
	}
	c.cpuPercent.Set(u.CPUPercent)
	c.memoryMB.Set(u.MemoryMB)
	c.numThreads.Set(float64(u.NumThreads))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastPID != pid {
		c.start, c.count = 0, 0
		c.lastPID = pid
	}
	size := len(c.ring)
	if c.count < size {
		c.ring[(c.start+c.count)%size] = u
		c.count++
	} else {
		c.ring[c.start] = u
		c.start = (c.start + 1) % size
	}
}

// History returns samples oldest first.
func (c *UsageCollector) History() []Usage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Usage, 0, c.count)
	for i := 0; i < c.count; i++ {
		out = append(out, c.ring[(c.start+i)%len(c.ring)])
	}
	return out
}

// Latest returns the most recent sample.
func (c *UsageCollector) Latest() (Usage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.count == 0 {
		return Usage{}, false
	}
	return c.ring[(c.start+c.count-1)%len(c.ring)], true
}

// Sample reads CPU, memory and thread counts for pid.
func Sample(pid int32) (Usage, error) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return Usage{}, fmt.Errorf("open process %d: %w", pid, err)
	}
	mem, err := proc.MemoryInfo()
	if err != nil {
		return Usage{}, fmt.Errorf("memory info: %w", err)
	}
	cpu, err := proc.CPUPercent()
	if err != nil {
		cpu = 0
	}
	threads, _ := proc.NumThreads()
	u := Usage{
		PID:        pid,
		CPUPercent: cpu,
		MemoryMB:   float64(mem.RSS) / 1024 / 1024,
		MemoryRSS:  mem.RSS,
		NumThreads: threads,
		Timestamp:  time.Now(),
	}
	if runtime.GOOS != "windows" {
		if fds, err := proc.NumFDs(); err == nil {
			u.NumFDs = fds
		}
	}
	return u, nil
}
