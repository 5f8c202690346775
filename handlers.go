package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/apex/log"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"

	"github.com/grtshw/lead-dispatch/photos"
	"github.com/grtshw/lead-dispatch/sheets"
	"github.com/grtshw/lead-dispatch/utils"
)

// dashboard serves the sheet-backed dashboard endpoints.
type dashboard struct {
	app            core.App
	fetcher        *sheets.Fetcher
	leaderboardURL string
	photos         *photos.Cache
	fetchLog       utils.FetchLogger
}

// handleLeaderboardData returns the leaderboard sheet as {"data": [...]}.
// Any failure, including a missing URL, returns the same 500 payload.
func (d *dashboard) handleLeaderboardData(re *core.RequestEvent) error {
	records, err := d.loadLeaderboard(re.Request.Context())
	if err != nil {
		if errors.Is(err, sheets.ErrNotConfigured) {
			// Missing config is not audited
			log.Warn("[Sheets] Leaderboard requested but LEADERBOARD_CSV_URL is not set")
		} else {
			log.WithError(err).Error("[Sheets] Failed to load leaderboard")
			d.auditFailure(re, utils.SourceLeaderboard, err)
		}
		return utils.InternalErrorResponse(re, "Failed to load leaderboard data")
	}

	return utils.DataResponse(re, map[string]any{"data": records})
}

func (d *dashboard) loadLeaderboard(ctx context.Context) ([]sheets.Record, error) {
	if d.leaderboardURL == "" {
		return nil, sheets.ErrNotConfigured
	}

	var records []sheets.Record
	err := utils.TrackFetch(d.fetchLog, utils.SourceLeaderboard, func() (int, error) {
		var err error
		records, err = d.fetcher.Table(ctx, d.leaderboardURL)
		return len(records), err
	})
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []sheets.Record{}
	}
	return records, nil
}

// handlePhotoLookup resolves ?name= to a photo URL.
func (d *dashboard) handlePhotoLookup(re *core.RequestEvent) error {
	name := re.Request.URL.Query().Get("name")

	url, ok, err := d.photos.Lookup(re.Request.Context(), name)
	if err != nil {
		d.auditFailure(re, utils.SourcePhotos, err)
		return utils.InternalErrorResponse(re, "Failed to load photo directory")
	}
	if !ok {
		return utils.NotFoundResponse(re, "Photo not found")
	}

	return utils.DataResponse(re, map[string]string{"name": name, "url": url})
}

// handlePhotoBatchLookup resolves {"names": [...]} and returns only the names that matched.
func (d *dashboard) handlePhotoBatchLookup(re *core.RequestEvent) error {
	var input struct {
		Names []string `json:"names"`
	}
	if err := json.NewDecoder(re.Request.Body).Decode(&input); err != nil {
		return utils.BadRequestResponse(re, "Invalid request body")
	}
	if len(input.Names) > utils.MaxPhotoBatchSize {
		return utils.BadRequestResponse(re, "Too many names")
	}

	found := make(map[string]string, len(input.Names))
	for _, name := range input.Names {
		url, ok, err := d.photos.Lookup(re.Request.Context(), name)
		if err != nil {
			d.auditFailure(re, utils.SourcePhotos, err)
			return utils.InternalErrorResponse(re, "Failed to load photo directory")
		}
		if ok {
			found[name] = url
		}
	}

	return utils.DataResponse(re, map[string]any{"photos": found})
}

// handlePhotoStats exposes the photo cache counters to admins.
func (d *dashboard) handlePhotoStats(re *core.RequestEvent) error {
	return utils.DataResponse(re, d.photos.Stats())
}

// handleSourceStatus reports the latest fetch and 24h failure count per sheet source.
func (d *dashboard) handleSourceStatus(re *core.RequestEvent) error {
	since := time.Now().UTC().Add(-24 * time.Hour).Format(types.DefaultDateLayout)

	items := make([]map[string]any, 0, len(utils.Sources))
	for _, source := range utils.Sources {
		item := map[string]any{
			"source":     source,
			"configured": d.configured(source),
			"last_fetch": nil,
		}

		latest, err := d.app.FindRecordsByFilter(
			utils.CollectionSourceFetchLogs,
			"source = {:source}",
			"-created",
			1, 0,
			dbx.Params{"source": source},
		)
		if err == nil && len(latest) > 0 {
			r := latest[0]
			item["last_fetch"] = map[string]any{
				"status":      r.GetString("status"),
				"rows":        r.GetInt("rows"),
				"duration_ms": r.GetInt("duration_ms"),
				"error":       r.GetString("error"),
				"created":     r.GetDateTime("created").String(),
			}
		}

		failures, err := d.app.CountRecords(
			utils.CollectionSourceFetchLogs,
			dbx.HashExp{"source": source, "status": utils.FetchStatusFailure},
			dbx.NewExp("created >= {:since}", dbx.Params{"since": since}),
		)
		if err != nil {
			log.WithError(err).Warnf("[Sources] Failed to count failures for %s", source)
		}
		item["failures_24h"] = failures

		items = append(items, item)
	}

	return utils.DataResponse(re, map[string]any{"items": items})
}

func (d *dashboard) configured(source string) bool {
	switch source {
	case utils.SourceLeaderboard:
		return d.leaderboardURL != ""
	case utils.SourcePhotos:
		return d.photos.Enabled()
	}
	return false
}

func (d *dashboard) auditFailure(re *core.RequestEvent, source string, err error) {
	if d.app == nil {
		return
	}
	utils.LogSourceFailure(d.app, re, source, err)
}

// photoRefreshRecorder turns photo cache refreshes into fetch log entries.
func photoRefreshRecorder(l utils.FetchLogger) func(photos.RefreshEvent) {
	return func(ev photos.RefreshEvent) {
		if l == nil {
			return
		}
		entry := utils.FetchLogEntry{
			Source:   utils.SourcePhotos,
			Status:   utils.FetchStatusSuccess,
			Rows:     ev.Entries,
			Duration: ev.Duration,
		}
		if ev.Err != nil {
			entry.Status = utils.FetchStatusFailure
			entry.Error = ev.Err.Error()
		}
		l.RecordFetch(entry)
	}
}
