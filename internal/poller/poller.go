// Package poller runs the refresh window of the aggregate views: on every
// tick the count views of each registered tenant are marked stale and,
// optionally, reloaded.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RefreshState represents the current state of a tenant's refresh.
type RefreshState int

const (
	RefreshIdle RefreshState = iota
	RefreshRunning
	RefreshError
)

func (s RefreshState) String() string {
	switch s {
	case RefreshRunning:
		return "running"
	case RefreshError:
		return "error"
	default:
		return "idle"
	}
}

// RefreshStatus holds the refresh state of a single tenant.
type RefreshStatus struct {
	Tenant      string
	State       RefreshState
	LastRefresh time.Time
	Invalidated int
	Error       error
}

// Refresher invalidates the refresh window of a tenant.
type Refresher interface {
	RefreshWindow(tenant string) int
}

// Warmer reloads a tenant's views after their window was invalidated.
type Warmer func(ctx context.Context, tenant string) error

// DefaultInterval is used when the configured interval is not positive.
const DefaultInterval = 300 * time.Second

// warmTimeout is the maximum time allowed for a single reload.
const warmTimeout = 30 * time.Second

type tenantEntry struct {
	tenant  string
	warm    Warmer
	trigger chan struct{}
}

// Poller orchestrates the periodic refresh of registered tenants.
type Poller struct {
	refresher Refresher
	interval  time.Duration
	log       zerolog.Logger

	mu       sync.Mutex
	tenants  []*tenantEntry
	statuses map[string]*RefreshStatus
	resultCh chan RefreshStatus
	stopCh   chan struct{}
	wg       sync.WaitGroup
	running  bool
}

// New creates a poller ticking every interval.
func New(r Refresher, interval time.Duration, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		refresher: r,
		interval:  interval,
		log:       log,
		statuses:  make(map[string]*RefreshStatus),
		resultCh:  make(chan RefreshStatus, 16),
		stopCh:    make(chan struct{}),
	}
}

// Register adds a tenant. warm may be nil. Tenants must be registered
// before Start.
func (p *Poller) Register(tenant string, warm Warmer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tenants = append(p.tenants, &tenantEntry{
		tenant:  tenant,
		warm:    warm,
		trigger: make(chan struct{}, 1),
	})
	p.statuses[tenant] = &RefreshStatus{Tenant: tenant, State: RefreshIdle}
}

// Start launches one refresh loop per registered tenant.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true

	for _, entry := range p.tenants {
		p.wg.Add(1)
		go p.loop(entry)
	}
	p.log.Debug().Dur("interval", p.interval).Int("tenants", len(p.tenants)).Msg("poller started")
}

// Stop halts all refresh loops and waits for them to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
}

// Results delivers a status after every refresh. Results are dropped when
// nobody reads them.
func (p *Poller) Results() <-chan RefreshStatus {
	return p.resultCh
}

// Trigger requests an immediate refresh of tenant.
func (p *Poller) Trigger(tenant string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, entry := range p.tenants {
		if entry.tenant == tenant {
			select {
			case entry.trigger <- struct{}{}:
			default:
				// A refresh is already pending.
			}
		}
	}
}

// Statuses returns the current refresh status of all tenants.
func (p *Poller) Statuses() []RefreshStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]RefreshStatus, 0, len(p.tenants))
	for _, entry := range p.tenants {
		statuses = append(statuses, *p.statuses[entry.tenant])
	}
	return statuses
}

func (p *Poller) loop(entry *tenantEntry) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.refresh(entry)
		case <-entry.trigger:
			p.refresh(entry)
		}
	}
}

// refresh invalidates the tenant's window, reloads it when a warmer is
// set, and publishes the outcome.
func (p *Poller) refresh(entry *tenantEntry) {
	p.setStatus(entry.tenant, RefreshRunning, 0, nil)

	n := p.refresher.RefreshWindow(entry.tenant)

	var err error
	if entry.warm != nil {
		ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
		err = entry.warm(ctx, entry.tenant)
		cancel()
	}

	if err != nil {
		p.log.Warn().Err(err).Str("tenant", entry.tenant).Msg("refresh failed")
		p.setStatus(entry.tenant, RefreshError, n, err)
	} else {
		p.setStatus(entry.tenant, RefreshIdle, n, nil)
	}

	p.mu.Lock()
	status := *p.statuses[entry.tenant]
	p.mu.Unlock()
	p.sendResult(status)
}

func (p *Poller) setStatus(tenant string, state RefreshState, invalidated int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.statuses[tenant]
	if !ok {
		return
	}

	status.State = state
	status.Error = err
	if state != RefreshRunning {
		status.Invalidated = invalidated
	}
	if state == RefreshIdle && err == nil {
		status.LastRefresh = time.Now()
	}
}

// sendResult sends a status on the result channel without blocking.
func (p *Poller) sendResult(status RefreshStatus) {
	select {
	case p.resultCh <- status:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}
