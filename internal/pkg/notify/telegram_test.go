package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
)

func TestFormatAlert(t *testing.T) {
	alert := models.Alert{
		Type:      "high_blocked_rate",
		Severity:  models.SeverityCritical,
		Message:   "bot-block rate above 20% over the last 15 minutes",
		Metadata:  map[string]string{"blocked_rate": "35.0%"},
		CreatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}

	got := formatAlert(alert)
	for _, want := range []string{"high_blocked_rate", "🚨", "35.0%", "2026-08-30T12:00:00Z"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatted alert missing %q:\n%s", want, got)
		}
	}
}

func TestFormatAlertWarningIcon(t *testing.T) {
	got := formatAlert(models.Alert{Type: "low_success_rate", Severity: models.SeverityWarning})
	if !strings.Contains(got, "⚠️") {
		t.Errorf("warning alert should use the warning icon:\n%s", got)
	}
}
