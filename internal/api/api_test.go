package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwjiang/sectorflow/internal/analysis"
	"github.com/mwjiang/sectorflow/internal/fetch"
	"github.com/mwjiang/sectorflow/internal/monitor"
	"github.com/mwjiang/sectorflow/internal/report"
	"github.com/mwjiang/sectorflow/internal/snapshot"
	"github.com/mwjiang/sectorflow/pkg/config"
	"github.com/mwjiang/sectorflow/pkg/httputil"
	"github.com/mwjiang/sectorflow/pkg/logger"
)

func testServer(t *testing.T) *httptest.Server {
	log := logger.NewNop()
	cfg := &config.Config{
		HTTPTimeout: 5 * time.Second,
		Domestic:    config.MarketConfig{Enabled: true, TimeOfDay: "15:05", ActiveDays: "MON-FRI"},
		US:          config.MarketConfig{Enabled: true, TimeOfDay: "06:00", ActiveDays: "TUE-SAT"},
		HK:          config.MarketConfig{Enabled: false, TimeOfDay: "16:05", ActiveDays: "MON-FRI"},
	}

	store := snapshot.NewStore(t.TempDir(), log)
	engine := analysis.NewEngine(log)
	opts := fetch.Options{HTTP: httputil.New(cfg, log), Logger: log}
	job := monitor.NewJob(store, engine, nil, opts, log)
	sched := monitor.NewScheduler(cfg, job, engine, report.New(log), nil, log)

	srv := httptest.NewServer(NewRouter(NewHandler(sched, log), log))
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestGetSchedules(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/api/schedules")
	require.NoError(t, err)
	defer resp.Body.Close()

	var schedules []scheduleView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&schedules))
	require.Len(t, schedules, 3)

	assert.Equal(t, "a_share", schedules[0].Market)
	assert.Equal(t, "15:05", schedules[0].TimeOfDay)
	assert.True(t, schedules[0].Enabled)
	assert.False(t, schedules[2].Enabled)
}

func patchSchedule(t *testing.T, srv *httptest.Server, market, body string) *http.Response {
	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/api/schedules/"+market, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestUpdateSchedule(t *testing.T) {
	srv := testServer(t)

	resp := patchSchedule(t, srv, "us", `{"time_of_day":"07:30","enabled":false}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated scheduleView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.Equal(t, "07:30", updated.TimeOfDay)
	assert.False(t, updated.Enabled)

	// The change is visible on the next read.
	list, err := http.Get(srv.URL + "/api/schedules")
	require.NoError(t, err)
	defer list.Body.Close()
	var schedules []scheduleView
	require.NoError(t, json.NewDecoder(list.Body).Decode(&schedules))
	assert.Equal(t, "07:30", schedules[1].TimeOfDay)
}

func TestUpdateSchedule_Validation(t *testing.T) {
	srv := testServer(t)

	resp := patchSchedule(t, srv, "us", `{"time_of_day":"not-a-time"}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = patchSchedule(t, srv, "crypto", `{"enabled":true}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = patchSchedule(t, srv, "us", `not json`)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunMarket_UnknownMarket(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Post(srv.URL+"/api/run/crypto", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetHistory_EmptyAtStart(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/api/history")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var records []monitor.RunRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	assert.Empty(t, records)
}
