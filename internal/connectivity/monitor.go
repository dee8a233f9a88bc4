// Package connectivity tracks whether the AI service is reachable and
// announces offline→online transitions so queued work can be replayed.
package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"mealvault/internal/config"
	"mealvault/internal/logging"
)

// Prober answers a single reachability check.
type Prober interface {
	Probe(ctx context.Context) bool
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context) bool

func (f ProberFunc) Probe(ctx context.Context) bool { return f(ctx) }

// HTTPProber checks reachability with a HEAD request against a generate-204
// style endpoint. Any completed HTTP exchange counts as online; only
// transport failure counts as offline.
type HTTPProber struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

func NewHTTPProber(url string, timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProber{
		url:     url,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProber) Probe(ctx context.Context) bool {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

// Monitor polls a prober and accepts explicit signals, collapsing duplicates
// so registered callbacks fire exactly once per offline→online transition.
type Monitor struct {
	prober   Prober
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	online    bool
	callbacks []func(context.Context)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor builds a monitor from config. The initial state is offline
// until the first probe or signal says otherwise, so startup never fires a
// spurious transition.
func NewMonitor(cfg *config.Config, prober Prober, logger *slog.Logger) *Monitor {
	if prober == nil {
		prober = NewHTTPProber(cfg.Sync.ProbeURL, time.Duration(cfg.Sync.ProbeTimeoutSeconds)*time.Second)
	}
	interval := time.Duration(cfg.Sync.ProbeIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		prober:   prober,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "connectivity"),
	}
}

// OnOnline registers a callback invoked on each offline→online transition.
// Registration must happen before Start.
func (m *Monitor) OnOnline(fn func(context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Online reports the last known connectivity state. Callers use it to decide
// between a direct AI call and enqueueing.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Signal feeds an explicit connectivity observation, e.g. a request failure
// or recovery noticed elsewhere. Duplicate observations are collapsed.
func (m *Monitor) Signal(ctx context.Context, online bool) {
	m.transition(ctx, online)
}

// Start begins periodic probing until Stop is called or the context is
// cancelled. An immediate probe runs before the first tick so state settles
// at startup.
func (m *Monitor) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.transition(runCtx, m.prober.Probe(runCtx))

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				m.transition(runCtx, m.prober.Probe(runCtx))
			}
		}
	}()
}

// Stop halts probing and waits for the poll loop to exit.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *Monitor) transition(ctx context.Context, online bool) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	var callbacks []func(context.Context)
	if online && !wasOnline {
		callbacks = append(callbacks, m.callbacks...)
	}
	m.mu.Unlock()

	if online == wasOnline {
		return
	}
	if online {
		m.logger.InfoContext(ctx, "connectivity restored")
		for _, fn := range callbacks {
			fn(ctx)
		}
	} else {
		m.logger.InfoContext(ctx, "connectivity lost")
	}
}
