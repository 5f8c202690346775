package main

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grtshw/lead-dispatch/utils"
)

// newTestApp bootstraps a migrated app in a temporary data dir.
func newTestApp(t *testing.T) core.App {
	t.Helper()
	app := core.NewBaseApp(core.BaseAppConfig{DataDir: t.TempDir()})
	require.NoError(t, app.Bootstrap())
	require.NoError(t, app.RunAllMigrations())
	t.Cleanup(func() { _ = app.ResetBootstrapState() })
	return app
}

// seedFetchLog saves a fetch log row and backdates it by age.
func seedFetchLog(t *testing.T, app core.App, source, status string, rows int, errMsg string, age time.Duration) {
	t.Helper()
	collection, err := app.FindCollectionByNameOrId(utils.CollectionSourceFetchLogs)
	require.NoError(t, err)

	record := core.NewRecord(collection)
	record.Set("source", source)
	record.Set("status", status)
	record.Set("rows", rows)
	record.Set("error", errMsg)
	require.NoError(t, app.Save(record))

	created := time.Now().UTC().Add(-age).Format(types.DefaultDateLayout)
	_, err = app.DB().Update(utils.CollectionSourceFetchLogs,
		dbx.Params{"created": created},
		dbx.HashExp{"id": record.Id},
	).Execute()
	require.NoError(t, err)
}

type sourceStatus struct {
	Source     string `json:"source"`
	Configured bool   `json:"configured"`
	LastFetch  *struct {
		Status string `json:"status"`
		Rows   int    `json:"rows"`
		Error  string `json:"error"`
	} `json:"last_fetch"`
	Failures24h int `json:"failures_24h"`
}

func fetchSourceStatus(t *testing.T, d *dashboard) map[string]sourceStatus {
	t.Helper()
	re, rec := newRequestEvent(http.MethodGet, "/api/dashboard/sources", nil)
	require.NoError(t, d.handleSourceStatus(re))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []sourceStatus `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	bySource := make(map[string]sourceStatus, len(body.Items))
	for _, item := range body.Items {
		bySource[item.Source] = item
	}
	return bySource
}

func TestHandleSourceStatus(t *testing.T) {
	app := newTestApp(t)
	seedFetchLog(t, app, utils.SourceLeaderboard, utils.FetchStatusFailure, 0, "old outage", 40*24*time.Hour)
	seedFetchLog(t, app, utils.SourceLeaderboard, utils.FetchStatusFailure, 0, "sheets: export returned status 500", 2*time.Hour)
	seedFetchLog(t, app, utils.SourceLeaderboard, utils.FetchStatusSuccess, 12, "", time.Hour)
	seedFetchLog(t, app, utils.SourcePhotos, utils.FetchStatusFailure, 0, "sheets: export returned status 403", 30*time.Minute)

	d := newDashboard(app, utils.Config{LeaderboardCSVURL: "http://sheets.invalid/l.csv", FetchTimeout: time.Second}, nil)
	status := fetchSourceStatus(t, d)
	require.Len(t, status, len(utils.Sources))

	leaderboard := status[utils.SourceLeaderboard]
	assert.True(t, leaderboard.Configured)
	require.NotNil(t, leaderboard.LastFetch)
	assert.Equal(t, utils.FetchStatusSuccess, leaderboard.LastFetch.Status)
	assert.Equal(t, 12, leaderboard.LastFetch.Rows)
	assert.Equal(t, 1, leaderboard.Failures24h, "failures older than a day are not counted")

	photos := status[utils.SourcePhotos]
	assert.False(t, photos.Configured)
	require.NotNil(t, photos.LastFetch)
	assert.Equal(t, utils.FetchStatusFailure, photos.LastFetch.Status)
	assert.Equal(t, "sheets: export returned status 403", photos.LastFetch.Error)
	assert.Equal(t, 1, photos.Failures24h)
}

func TestHandleSourceStatusWithoutLogs(t *testing.T) {
	app := newTestApp(t)
	d := newDashboard(app, utils.Config{FetchTimeout: time.Second}, nil)

	for _, source := range utils.Sources {
		item := fetchSourceStatus(t, d)[source]
		assert.Nil(t, item.LastFetch, source)
		assert.Zero(t, item.Failures24h, source)
	}
}

func TestPruneFetchLogs(t *testing.T) {
	app := newTestApp(t)
	seedFetchLog(t, app, utils.SourceLeaderboard, utils.FetchStatusFailure, 0, "old outage", 40*24*time.Hour)
	seedFetchLog(t, app, utils.SourcePhotos, utils.FetchStatusSuccess, 3, "", 29*24*time.Hour)
	seedFetchLog(t, app, utils.SourceLeaderboard, utils.FetchStatusSuccess, 5, "", time.Minute)

	pruned, err := utils.PruneFetchLogs(app, utils.FetchLogRetentionDays)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)

	remaining, err := app.CountRecords(utils.CollectionSourceFetchLogs)
	require.NoError(t, err)
	assert.EqualValues(t, 2, remaining)

	pruned, err = utils.PruneFetchLogs(app, utils.FetchLogRetentionDays)
	require.NoError(t, err)
	assert.Zero(t, pruned)
}

func TestFetchLogSavesEntries(t *testing.T) {
	app := newTestApp(t)
	fetchLog := utils.NewFetchLog(app)

	fetchLog.RecordFetch(utils.FetchLogEntry{
		Source:   utils.SourcePhotos,
		Status:   utils.FetchStatusSuccess,
		Rows:     42,
		Duration: 250 * time.Millisecond,
	})

	var record *core.Record
	require.Eventually(t, func() bool {
		records, err := app.FindAllRecords(utils.CollectionSourceFetchLogs)
		if err != nil || len(records) != 1 {
			return false
		}
		record = records[0]
		return true
	}, 2*time.Second, 20*time.Millisecond)

	assert.Equal(t, utils.SourcePhotos, record.GetString("source"))
	assert.Equal(t, 42, record.GetInt("rows"))
	assert.Equal(t, 250, record.GetInt("duration_ms"))
}

func TestLeaderboardAuditsUpstreamFailuresOnly(t *testing.T) {
	app := newTestApp(t)

	unconfigured := newDashboard(app, utils.Config{FetchTimeout: time.Second}, nil)
	re, rec := newRequestEvent(http.MethodGet, "/api/leaderboard-data", nil)
	re.App = app
	require.NoError(t, unconfigured.handleLeaderboardData(re))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	srv, _ := sheetServer(t, http.StatusBadGateway, "")
	failing := newDashboard(app, utils.Config{LeaderboardCSVURL: srv.URL, FetchTimeout: time.Second}, nil)
	re, rec = newRequestEvent(http.MethodGet, "/api/leaderboard-data", nil)
	re.App = app
	require.NoError(t, failing.handleLeaderboardData(re))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	require.Eventually(t, func() bool {
		n, err := app.CountRecords(utils.CollectionAuditLogs)
		return err == nil && n > 0
	}, 2*time.Second, 20*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	records, err := app.FindAllRecords(utils.CollectionAuditLogs)
	require.NoError(t, err)
	require.Len(t, records, 1, "a missing URL is not audited")
	assert.Equal(t, utils.SourceLeaderboard, records[0].GetString("resource_type"))
	assert.Equal(t, utils.AuditFailure, records[0].GetString("status"))
	assert.Contains(t, records[0].GetString("error_message"), "502")
}
