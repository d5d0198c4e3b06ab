package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/projectsync/internal/reconcile"
)

var _ reconcile.MetricsSink = (*Metrics)(nil)

func getMetricsBody(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_New(t *testing.T) {
	m := New()
	assert.NotNil(t, m.CyclesTotal)
	assert.NotNil(t, m.CycleDuration)
	assert.NotNil(t, m.ChangesTotal)
	assert.NotNil(t, m.ProjectsByStage)
	assert.NotNil(t, m.RequestsTotal)
	assert.NotNil(t, m.ErrorsTotal)
}

func TestMetrics_ObserveCycle(t *testing.T) {
	m := New()
	m.ObserveCycle("success", 2*time.Second)
	m.ObserveCycle("failed", time.Second)
	m.ObserveCycle("skipped", 0)

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `projectsync_cycles_total{result="success"} 1`)
	assert.Contains(t, body, `projectsync_cycles_total{result="failed"} 1`)
	assert.Contains(t, body, `projectsync_cycles_total{result="skipped"} 1`)
	assert.Contains(t, body, `projectsync_cycle_duration_seconds_count{result="success"} 1`)
	assert.NotContains(t, body, `projectsync_cycle_duration_seconds_count{result="skipped"}`)
	assert.Contains(t, body, "projectsync_last_success_timestamp_seconds")
}

func TestMetrics_RecordChange(t *testing.T) {
	m := New()
	m.RecordChange("new_project", "applied")
	m.RecordChange("new_project", "applied")
	m.RecordChange("deleted_project", "audited")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `projectsync_changes_total{kind="new_project",outcome="applied"} 2`)
	assert.Contains(t, body, `projectsync_changes_total{kind="deleted_project",outcome="audited"} 1`)
}

func TestMetrics_ProjectsByStage(t *testing.T) {
	m := New()
	m.SetProjectsByStage("tech", "wip", 3)
	m.SetProjectsByStage("records", "mix", 1)

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `projectsync_projects{brand="tech",stage="wip"} 3`)

	m.ResetProjectsByStage()
	m.SetProjectsByStage("tech", "ready_for_demo", 1)
	body = getMetricsBody(t, m)
	assert.NotContains(t, body, `stage="wip"`)
	assert.Contains(t, body, `projectsync_projects{brand="tech",stage="ready_for_demo"} 1`)
}

func TestMetrics_DBSizeAndRetries(t *testing.T) {
	m := New()
	m.SetDBSizeBytes(8192)
	m.RecordRetry()
	m.RecordRetry()

	body := getMetricsBody(t, m)
	assert.Contains(t, body, "projectsync_db_size_bytes 8192")
	assert.Contains(t, body, "projectsync_store_retries_total 2")
}

func TestMetrics_RecordRequestAndError(t *testing.T) {
	m := New()
	m.RecordRequest("/api/v1/projects", "2xx")
	m.RecordError("mgmt", "internal")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `projectsync_api_requests_total{route="/api/v1/projects",status="2xx"} 1`)
	assert.Contains(t, body, `projectsync_errors_total{module="mgmt",type="internal"} 1`)
}
