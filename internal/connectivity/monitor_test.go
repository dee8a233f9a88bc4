package connectivity_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"mealvault/internal/connectivity"
	"mealvault/internal/logging"
	"mealvault/internal/testsupport"
)

func TestSignalFiresOncePerTransition(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	monitor := connectivity.NewMonitor(cfg, connectivity.ProberFunc(func(context.Context) bool { return false }), logging.NewNop())

	var fired atomic.Int32
	monitor.OnOnline(func(context.Context) { fired.Add(1) })

	if monitor.Online() {
		t.Fatal("monitor starts online")
	}

	monitor.Signal(ctx, true)
	monitor.Signal(ctx, true)
	monitor.Signal(ctx, true)
	if got := fired.Load(); got != 1 {
		t.Fatalf("callbacks fired %d times for one transition", got)
	}
	if !monitor.Online() {
		t.Fatal("monitor not online after signal")
	}

	monitor.Signal(ctx, false)
	monitor.Signal(ctx, false)
	if monitor.Online() {
		t.Fatal("monitor still online after offline signal")
	}
	if got := fired.Load(); got != 1 {
		t.Fatalf("offline signal fired online callbacks: %d", got)
	}

	monitor.Signal(ctx, true)
	if got := fired.Load(); got != 2 {
		t.Fatalf("second transition fired %d callbacks total, want 2", got)
	}
}

func TestStartProbesImmediately(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	online := atomic.Bool{}
	online.Store(true)
	monitor := connectivity.NewMonitor(cfg, connectivity.ProberFunc(func(context.Context) bool {
		return online.Load()
	}), logging.NewNop())

	fired := make(chan struct{}, 1)
	monitor.OnOnline(func(context.Context) { fired <- struct{}{} })

	monitor.Start(context.Background())
	defer monitor.Stop()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("initial probe did not fire online callback")
	}
	if !monitor.Online() {
		t.Fatal("monitor not online after initial probe")
	}
}

func TestStopHaltsPolling(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var probes atomic.Int32
	monitor := connectivity.NewMonitor(cfg, connectivity.ProberFunc(func(context.Context) bool {
		probes.Add(1)
		return false
	}), logging.NewNop())

	monitor.Start(context.Background())
	monitor.Stop()

	settled := probes.Load()
	time.Sleep(50 * time.Millisecond)
	if probes.Load() != settled {
		t.Fatal("probing continued after Stop")
	}
}
