package utils

import (
	"net/http"
	"unicode/utf8"

	"github.com/apex/log"
	"github.com/pocketbase/pocketbase/core"
)

const maxAuditMessage = 1000

// AuditEntry is one row of audit_logs.
type AuditEntry struct {
	UserID       string
	UserEmail    string
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	UserAgent    string
	Changes      map[string]any
	Status       string
	ErrorMessage string
}

func (a AuditEntry) apply(record *core.Record) {
	record.Set("user_id", a.UserID)
	record.Set("user_email", a.UserEmail)
	record.Set("action", a.Action)
	record.Set("resource_type", a.ResourceType)
	record.Set("resource_id", a.ResourceID)
	record.Set("ip_address", a.IPAddress)
	record.Set("user_agent", a.UserAgent)
	record.Set("changes", a.Changes)
	record.Set("status", a.Status)
	record.Set("error_message", truncate(a.ErrorMessage, maxAuditMessage))
}

// LogAudit saves entry in the background so requests are not blocked.
func LogAudit(app core.App, entry AuditEntry) {
	go func() {
		collection, err := app.FindCollectionByNameOrId(CollectionAuditLogs)
		if err != nil {
			log.WithError(err).Warn("[Audit] Collection not found")
			return
		}

		record := core.NewRecord(collection)
		entry.apply(record)

		if err := app.Save(record); err != nil {
			log.WithError(err).WithField("action", entry.Action).Warn("[Audit] Failed to save audit log")
		}
	}()
}

// sourceFailureEntry describes a failed sheet load made on behalf of auth from ip.
func sourceFailureEntry(r *http.Request, auth *core.Record, ip, source string, err error) AuditEntry {
	entry := AuditEntry{
		Action:       AuditAPICall,
		ResourceType: source,
		IPAddress:    ip,
		UserAgent:    r.UserAgent(),
		Status:       AuditFailure,
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	if auth != nil {
		entry.UserID = auth.Id
		entry.UserEmail = auth.Email()
	}
	return entry
}

// LogSourceFailure records that a request could not be served because source failed to load.
func LogSourceFailure(app core.App, re *core.RequestEvent, source string, err error) {
	LogAudit(app, sourceFailureEntry(re.Request, re.Auth, re.RealIP(), source, err))
}

// LogRecordChange logs a record change from PocketBase hooks
func LogRecordChange(app core.App, action, resourceType, resourceID string, changes map[string]any) {
	LogAudit(app, AuditEntry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Changes:      changes,
		Status:       AuditSuccess,
	})
}

// LogAuthEvent logs a sign-in to the dashboard.
func LogAuthEvent(app core.App, userID, userEmail, status string) {
	LogAudit(app, AuditEntry{
		UserID:       userID,
		UserEmail:    userEmail,
		Action:       AuditLogin,
		ResourceType: CollectionUsers,
		ResourceID:   userID,
		Status:       status,
	})
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
