package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Detector paces requests per domain within a scrape. This is distinct from
// source cooldown: cooldown decides whether a source is used at all on the
// next job cycle, the detector spaces out the requests of the current one.
type Detector struct {
	baseInterval time.Duration
	maxInterval  time.Duration

	mu      sync.Mutex
	domains map[string]*domainState
}

type domainState struct {
	lastRequest time.Time
	interval    time.Duration
	failures    int
}

// NewDetector creates a detector with the given baseline inter-request
// interval. The interval widens per domain on repeated failures, up to 8x.
func NewDetector(baseInterval time.Duration) *Detector {
	if baseInterval <= 0 {
		baseInterval = 2 * time.Second
	}
	return &Detector{
		baseInterval: baseInterval,
		maxInterval:  8 * baseInterval,
		domains:      make(map[string]*domainState),
	}
}

// WaitForRateLimit blocks until the domain's minimum inter-request interval
// has elapsed since its last recorded access, or ctx is done.
func (d *Detector) WaitForRateLimit(ctx context.Context, domain string) error {
	d.mu.Lock()
	st := d.state(domain)
	wait := st.interval - time.Since(st.lastRequest)
	st.lastRequest = time.Now().Add(max0(wait))
	d.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	slog.Debug("rate limit pacing", "domain", domain, "wait", wait)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RecordSuccess narrows the domain's interval back toward the baseline.
func (d *Detector) RecordSuccess(domain string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.state(domain)
	st.failures = 0
	st.interval = d.baseInterval
}

// RecordFailure widens the domain's interval: doubled per consecutive
// failure, capped at maxInterval.
func (d *Detector) RecordFailure(domain string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.state(domain)
	st.failures++
	st.interval *= 2
	if st.interval > d.maxInterval {
		st.interval = d.maxInterval
	}
}

// Interval returns the current pacing interval for a domain.
func (d *Detector) Interval(domain string) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state(domain).interval
}

func (d *Detector) state(domain string) *domainState {
	st, ok := d.domains[domain]
	if !ok {
		st = &domainState{interval: d.baseInterval}
		d.domains[domain] = st
	}
	return st
}

func max0(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
