package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape returned %d", rec.Code)
	}
	return rec.Body.String()
}

// TestScrapeExposesCounters verifies the loop counters appear with their
// current values
func TestScrapeExposesCounters(t *testing.T) {
	m := New()
	m.FramesProcessed.Add(42)
	m.AlertsRaised.Add(7)
	m.PublishErrors.Add(1)
	m.ObjectsInView.Store(5)
	m.SetConnected(true)

	body := scrape(t, m)

	for _, want := range []string{
		"argus_frames_processed_total 42",
		"argus_alerts_raised_total 7",
		"argus_publish_errors_total 1",
		"argus_objects_in_view 5",
		"argus_mqtt_connected 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %q\n%s", want, body)
		}
	}
}

// TestAchievedFPSRoundTrip verifies the fps gauge keeps fractional rates
func TestAchievedFPSRoundTrip(t *testing.T) {
	m := New()
	m.SetAchievedFPS(7.984)

	body := scrape(t, m)
	if !strings.Contains(body, "argus_achieved_fps 7.984") {
		t.Errorf("scrape missing achieved fps gauge\n%s", body)
	}
}

// TestConnectedToggle verifies the connection gauge flips both ways
func TestConnectedToggle(t *testing.T) {
	m := New()

	m.SetConnected(true)
	if m.MQTTConnected.Load() != 1 {
		t.Error("SetConnected(true) did not set 1")
	}

	m.SetConnected(false)
	if m.MQTTConnected.Load() != 0 {
		t.Error("SetConnected(false) did not set 0")
	}
}

// TestUptimeAdvances verifies the uptime gauge is registered and positive
func TestUptimeAdvances(t *testing.T) {
	m := New()
	body := scrape(t, m)
	if !strings.Contains(body, "argus_uptime_seconds") {
		t.Errorf("scrape missing uptime gauge\n%s", body)
	}
}
