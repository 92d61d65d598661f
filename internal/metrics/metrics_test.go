package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	return rec.Body.String()
}

func TestRecorders(t *testing.T) {
	m := New()

	m.FileProcessed(true, 20*time.Millisecond)
	m.FileProcessed(false, time.Millisecond)
	m.FileProcessed(true, time.Millisecond)
	m.Responses(8, 1, 2)
	m.DefaultedCells(3)
	m.DefaultedCells(0)
	m.SchemaDetected("current")

	body := scrape(t, m)
	for _, line := range []string{
		`surveylens_files_processed_total{outcome="success"} 2`,
		`surveylens_files_processed_total{outcome="failure"} 1`,
		`surveylens_responses_total{state="usable"} 8`,
		`surveylens_responses_total{state="flagged"} 2`,
		`surveylens_defaulted_cells_total 3`,
		`surveylens_schema_detections_total{schema="current"} 1`,
		`surveylens_process_duration_seconds_count 3`,
	} {
		assert.Contains(t, body, line)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.FileProcessed(true, time.Second)
		m.Responses(1, 1, 1)
		m.DefaultedCells(1)
		m.SchemaDetected("legacy")
		m.HTTPRequest("GET", "/", "200", time.Second)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.HTTPRequest("POST", "/api/uploads", "201", 50*time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `surveylens_http_requests_total{method="POST",route="/api/uploads",status="201"} 1`)
	assert.Contains(t, body, "surveylens_http_request_duration_seconds_bucket")
}
