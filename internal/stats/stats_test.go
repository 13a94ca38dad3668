package stats

import (
	"context"
	"testing"
	"time"

	"github.com/lucasilverentand/pane/internal/protocol"
)

func TestSampleReturnsBoundedPercentages(t *testing.T) {
	s, err := Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample returned error: %v", err)
	}
	if s.CPUPercent < 0 || s.CPUPercent > 100 {
		t.Fatalf("cpu percent out of range: %v", s.CPUPercent)
	}
	if s.MemoryPercent < 0 || s.MemoryPercent > 100 {
		t.Fatalf("memory percent out of range: %v", s.MemoryPercent)
	}
	if s.DiskUsagePercent < 0 || s.DiskUsagePercent > 100 {
		t.Fatalf("disk percent out of range: %v", s.DiskUsagePercent)
	}
}

func TestNewClampsIntervalToMinimum(t *testing.T) {
	c := New(10*time.Millisecond, nil)
	if c.Interval != MinInterval {
		t.Fatalf("expected interval clamped to %v, got %v", MinInterval, c.Interval)
	}
}

func TestRunDeliversSampleAndStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	received := make(chan protocol.SystemStats, 1)
	c := New(time.Hour, func(s protocol.SystemStats) { received <- s })

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("expected an immediate sample on Run start")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("expected Run to return after context cancellation")
	}
}
