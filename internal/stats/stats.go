// Package stats periodically samples system resource usage and reports it
// as a protocol.SystemStats snapshot (spec §4.9).
//
// Grounded on _examples/original_source/crates/pane-daemon/src/system_stats.rs:
// a ticker-driven collector refreshing CPU, memory, load average, and disk
// usage each interval and sending a snapshot downstream on every tick. Where
// the original reaches for sysinfo, this uses shirou/gopsutil/v4 (already in
// the teacher's go.mod) for the equivalent cpu/mem/load/disk readings.
package stats

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/lucasilverentand/pane/internal/protocol"
)

// MinInterval is the smallest sampling interval SPEC_FULL.md permits;
// anything shorter is clamped up to it.
const MinInterval = time.Second

// Collector samples system stats on a ticker and delivers each snapshot to
// OnSample.
type Collector struct {
	Interval time.Duration
	OnSample func(protocol.SystemStats)
}

// New creates a Collector with interval clamped to at least MinInterval.
func New(interval time.Duration, onSample func(protocol.SystemStats)) *Collector {
	if interval < MinInterval {
		interval = MinInterval
	}
	return &Collector{Interval: interval, OnSample: onSample}
}

// Run samples once immediately and then every Interval until ctx is
// cancelled.
func (c *Collector) Run(ctx context.Context) {
	if s, err := Sample(ctx); err == nil && c.OnSample != nil {
		c.OnSample(s)
	}

	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s, err := Sample(ctx)
			if err != nil {
				continue
			}
			if c.OnSample != nil {
				c.OnSample(s)
			}
		}
	}
}

// Sample takes one point-in-time reading of CPU, memory, load average, and
// disk usage. A failure on any one metric leaves that field zeroed rather
// than failing the whole sample, since a single unreadable counter (e.g. no
// /proc/loadavg in a container) shouldn't suppress the rest.
func Sample(ctx context.Context) (protocol.SystemStats, error) {
	var out protocol.SystemStats

	if percents, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false); err == nil && len(percents) > 0 {
		out.CPUPercent = float32(percents[0])
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		out.MemoryPercent = float32(vm.UsedPercent)
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		out.LoadAvg1 = avg.Load1
	}

	if partitions, err := disk.PartitionsWithContext(ctx, false); err == nil {
		var total, used uint64
		for _, p := range partitions {
			u, err := disk.UsageWithContext(ctx, p.Mountpoint)
			if err != nil {
				continue
			}
			total += u.Total
			used += u.Used
		}
		if total > 0 {
			out.DiskUsagePercent = float32(used) / float32(total) * 100
		}
	}

	return out, nil
}
