package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
)

// DefaultWindow is the look-back used by CheckAlerts.
const DefaultWindow = 15 * time.Minute

// Alert thresholds over the default window.
const (
	blockedRateThreshold = 0.20
	successRateThreshold = 0.80
)

// RequestRecord is one entry in the rolling request log.
type RequestRecord struct {
	Source         string
	Success        bool
	Blocked        bool
	StatusCode     int
	ResponseTimeMs int64
	At             time.Time
}

// RequestOpts carries the optional fields of RecordRequest.
type RequestOpts struct {
	Blocked    bool
	StatusCode int
}

// Collector keeps a bounded rolling log of scrape requests and computes
// success/blocked rates over a time window. Safe for concurrent use by the
// job loops and the health endpoints.
type Collector struct {
	capacity int
	now      func() time.Time

	mu      sync.RWMutex
	entries []RequestRecord // ring buffer
	next    int
	full    bool
}

// NewCollector creates a collector that keeps at most capacity entries,
// evicting the oldest past that.
func NewCollector(capacity int) *Collector {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Collector{
		capacity: capacity,
		now:      time.Now,
		entries:  make([]RequestRecord, capacity),
	}
}

// RecordRequest appends one request outcome to the rolling log.
func (c *Collector) RecordRequest(source string, success bool, responseTimeMs int64, opts RequestOpts) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[c.next] = RequestRecord{
		Source:         source,
		Success:        success,
		Blocked:        opts.Blocked,
		StatusCode:     opts.StatusCode,
		ResponseTimeMs: responseTimeMs,
		At:             c.now(),
	}
	c.next++
	if c.next == c.capacity {
		c.next = 0
		c.full = true
	}
}

// SuccessRate returns the fraction of successful requests within the window,
// or 1.0 when the window is empty (no data is not a failure signal).
func (c *Collector) SuccessRate(window time.Duration) float64 {
	total, matched := c.count(window, func(r RequestRecord) bool { return r.Success })
	if total == 0 {
		return 1.0
	}
	return float64(matched) / float64(total)
}

// BlockedRate returns the fraction of requests flagged as bot-blocked
// within the window.
func (c *Collector) BlockedRate(window time.Duration) float64 {
	total, matched := c.count(window, func(r RequestRecord) bool { return r.Blocked })
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total)
}

// AverageResponseTime returns the mean response time within the window.
func (c *Collector) AverageResponseTime(window time.Duration) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cutoff := c.now().Add(-window)
	var sum int64
	var n int64
	c.each(func(r RequestRecord) {
		if r.At.After(cutoff) {
			sum += r.ResponseTimeMs
			n++
		}
	})
	if n == 0 {
		return 0
	}
	return time.Duration(sum/n) * time.Millisecond
}

// CheckAlerts returns threshold alerts over the default window. It does not
// mutate state and is safe to call repeatedly from both the job loop and
// the dashboard handler.
func (c *Collector) CheckAlerts() []models.Alert {
	var alerts []models.Alert
	now := c.now()

	if blocked := c.BlockedRate(DefaultWindow); blocked > blockedRateThreshold {
		alerts = append(alerts, models.Alert{
			Type:      "high_blocked_rate",
			Severity:  models.SeverityCritical,
			Message:   "bot-block rate above 20% over the last 15 minutes",
			Metadata:  map[string]string{"blocked_rate": formatRate(blocked)},
			CreatedAt: now,
		})
	}
	if success := c.SuccessRate(DefaultWindow); success < successRateThreshold {
		alerts = append(alerts, models.Alert{
			Type:      "low_success_rate",
			Severity:  models.SeverityWarning,
			Message:   "scrape success rate below 80% over the last 15 minutes",
			Metadata:  map[string]string{"success_rate": formatRate(success)},
			CreatedAt: now,
		})
	}
	return alerts
}

// Snapshot returns rates for the health endpoint.
type Snapshot struct {
	SuccessRate     float64       `json:"success_rate"`
	BlockedRate     float64       `json:"blocked_rate"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	WindowEntries   int           `json:"window_entries"`
}

// GetSnapshot computes rates over the given window.
func (c *Collector) GetSnapshot(window time.Duration) Snapshot {
	total, _ := c.count(window, func(RequestRecord) bool { return true })
	return Snapshot{
		SuccessRate:     c.SuccessRate(window),
		BlockedRate:     c.BlockedRate(window),
		AvgResponseTime: c.AverageResponseTime(window),
		WindowEntries:   total,
	}
}

func (c *Collector) count(window time.Duration, pred func(RequestRecord) bool) (total, matched int) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cutoff := c.now().Add(-window)
	c.each(func(r RequestRecord) {
		if r.At.After(cutoff) {
			total++
			if pred(r) {
				matched++
			}
		}
	})
	return total, matched
}

// each visits live entries; caller must hold the lock.
func (c *Collector) each(fn func(RequestRecord)) {
	n := c.next
	if c.full {
		n = c.capacity
	}
	for i := 0; i < n; i++ {
		fn(c.entries[i])
	}
}

func formatRate(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
