package utils

import (
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

// FetchLogEntry describes one download of a sheet source.
type FetchLogEntry struct {
	Source   string
	Status   string
	Rows     int
	Duration time.Duration
	Error    string
}

// FetchLogger records sheet downloads.
type FetchLogger interface {
	RecordFetch(entry FetchLogEntry)
}

// FetchLog stores entries in the source_fetch_logs collection.
type FetchLog struct {
	app core.App
}

// NewFetchLog returns a FetchLog backed by app.
func NewFetchLog(app core.App) *FetchLog {
	return &FetchLog{app: app}
}

// RecordFetch saves the entry in the background. Entries are dropped until the
// app is bootstrapped, as happens for CLI commands that skip the database.
func (l *FetchLog) RecordFetch(entry FetchLogEntry) {
	if !l.app.IsBootstrapped() {
		return
	}
	go func() {
		collection, err := l.app.FindCollectionByNameOrId(CollectionSourceFetchLogs)
		if err != nil {
			log.WithError(err).Warn("[FetchLog] Collection not found")
			return
		}

		record := core.NewRecord(collection)
		record.Set("source", entry.Source)
		record.Set("status", entry.Status)
		record.Set("rows", entry.Rows)
		record.Set("duration_ms", entry.Duration.Milliseconds())
		record.Set("error", truncate(entry.Error, maxAuditMessage))

		if err := l.app.Save(record); err != nil {
			log.WithError(err).Warn("[FetchLog] Failed to save fetch log")
		}
	}()
}

// TrackFetch times fn and records its outcome for source. fn returns the number of
// rows it produced. A nil logger only times the call.
func TrackFetch(l FetchLogger, source string, fn func() (int, error)) error {
	start := time.Now()
	rows, err := fn()

	entry := FetchLogEntry{
		Source:   source,
		Status:   FetchStatusSuccess,
		Rows:     rows,
		Duration: time.Since(start),
	}
	if err != nil {
		entry.Status = FetchStatusFailure
		entry.Rows = 0
		entry.Error = err.Error()
	}

	if l != nil {
		l.RecordFetch(entry)
	}
	return err
}

// PruneFetchLogs deletes fetch logs older than the retention window.
func PruneFetchLogs(app core.App, retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(types.DefaultDateLayout)

	result, err := app.DB().
		Delete(CollectionSourceFetchLogs, dbx.NewExp("created < {:cutoff}", dbx.Params{"cutoff": cutoff})).
		Execute()
	if err != nil {
		return 0, fmt.Errorf("prune fetch logs: %w", err)
	}

	return result.RowsAffected()
}
