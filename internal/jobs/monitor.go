package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/metrics"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/storage"
)

// Notifier pushes one alert to an operator channel.
type Notifier interface {
	Notify(ctx context.Context, alert models.Alert) error
}

// repeatSuppression is how long a raised alert type stays quiet before the
// same condition raises it again.
const repeatSuppression = 30 * time.Minute

// AlertMonitor evaluates the metric thresholds, persists new alerts and
// forwards them to the notifier. The collector check itself is pure; the
// monitor adds the dedup so a sustained condition does not flood the
// operator on every scheduler tick.
type AlertMonitor struct {
	collector *metrics.Collector
	alerts    storage.AlertStore
	notifier  Notifier
	now       func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time // by alert type
}

func NewAlertMonitor(collector *metrics.Collector, alerts storage.AlertStore, notifier Notifier) *AlertMonitor {
	return &AlertMonitor{
		collector: collector,
		alerts:    alerts,
		notifier:  notifier,
		now:       time.Now,
		lastSent:  make(map[string]time.Time),
	}
}

// Check raises any threshold alerts that are not currently suppressed.
// Returns how many alerts were raised.
func (m *AlertMonitor) Check(ctx context.Context) int {
	raised := 0
	for _, alert := range m.collector.CheckAlerts() {
		if !m.shouldRaise(alert.Type) {
			continue
		}
		if m.alerts != nil {
			if err := m.alerts.InsertAlert(ctx, &alert); err != nil {
				slog.Error("persist alert failed", "type", alert.Type, "error", err)
				continue
			}
		}
		if m.notifier != nil {
			if err := m.notifier.Notify(ctx, alert); err != nil {
				slog.Error("alert notification failed", "type", alert.Type, "error", err)
			}
		}
		slog.Warn("alert raised", "type", alert.Type, "severity", alert.Severity, "message", alert.Message)
		raised++
	}
	return raised
}

func (m *AlertMonitor) shouldRaise(alertType string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if last, ok := m.lastSent[alertType]; ok && now.Sub(last) < repeatSuppression {
		return false
	}
	m.lastSent[alertType] = now
	return true
}
