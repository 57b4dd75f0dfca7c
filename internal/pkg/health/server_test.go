package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/metrics"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/storage"
)

type staticStatuser []models.SourceSummary

func (s staticStatuser) Statuses(context.Context) []models.SourceSummary { return s }

func newTestServer(t *testing.T) (*Server, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	statuser := staticStatuser{
		{Name: "oddsportal", Status: models.SourceStatusHealthy, SuccessRate: 0.95},
		{Name: "betexplorer", Status: models.SourceStatusCooldown, SuccessRate: 0.5},
	}
	return NewServer(metrics.NewCollector(100), statuser, store, store), store
}

func TestPing(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.handlePing(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Errorf("ping = %d %q", rec.Code, rec.Body.String())
	}
}

func TestSourcesEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.handleSources(rec, httptest.NewRequest(http.MethodGet, "/sources", nil))

	var body struct {
		Sources []models.SourceSummary `json:"sources"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(body.Sources))
	}
	if body.Sources[0].Name != "oddsportal" || body.Sources[0].Status != "healthy" {
		t.Errorf("first source = %+v", body.Sources[0])
	}
}

func TestRunsEndpoint(t *testing.T) {
	s, store := newTestServer(t)
	run := &models.ScraperRun{JobType: models.JobSyncOdds, Status: models.RunSuccess}
	if err := store.InsertRun(context.Background(), run); err != nil {
		t.Fatalf("insert run: %v", err)
	}

	rec := httptest.NewRecorder()
	s.handleRuns(rec, httptest.NewRequest(http.MethodGet, "/runs?limit=10", nil))

	var body struct {
		Runs  []models.ScraperRun `json:"runs"`
		Count int                 `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 || body.Runs[0].JobType != models.JobSyncOdds {
		t.Errorf("runs response = %+v", body)
	}
}

func TestAckAlertEndpoint(t *testing.T) {
	s, store := newTestServer(t)
	alert := &models.Alert{Type: "low_success_rate", Severity: models.SeverityWarning}
	if err := store.InsertAlert(context.Background(), alert); err != nil {
		t.Fatalf("insert alert: %v", err)
	}

	rec := httptest.NewRecorder()
	s.handleAckAlert(rec, httptest.NewRequest(http.MethodPost, "/alerts/ack?id=1&by=ops", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ack returned %d: %s", rec.Code, rec.Body.String())
	}

	alerts, _ := store.RecentAlerts(context.Background(), 10)
	if len(alerts) != 0 {
		t.Errorf("acknowledged alert still listed: %+v", alerts)
	}

	rec = httptest.NewRecorder()
	s.handleAckAlert(rec, httptest.NewRequest(http.MethodGet, "/alerts/ack?id=1", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET ack should 405, got %d", rec.Code)
	}
}

func TestMetricsEndpointRejectsBadWindow(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.handleMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics?window=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad window should 400, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.handleMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	var snap metrics.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.SuccessRate != 1.0 {
		t.Errorf("empty collector success rate = %v, want 1.0", snap.SuccessRate)
	}
}
