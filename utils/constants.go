package utils

// Collection names
const (
	CollectionUsers           = "users"
	CollectionAuditLogs       = "audit_logs"
	CollectionSourceFetchLogs = "source_fetch_logs"
)

// Field names
const (
	FieldRole = "role"
	FieldTeam = "team"
)

// User roles
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// Sheet sources tracked in source_fetch_logs
const (
	SourceLeaderboard = "leaderboard"
	SourcePhotos      = "photos"
)

// Sources lists every sheet source in display order.
var Sources = []string{SourceLeaderboard, SourcePhotos}

// Fetch log status values
const (
	FetchStatusSuccess = "success"
	FetchStatusFailure = "failure"
)

// Audit actions and outcomes
const (
	AuditCreate  = "create"
	AuditUpdate  = "update"
	AuditDelete  = "delete"
	AuditLogin   = "login"
	AuditAPICall = "api_call"

	AuditSuccess = "success"
	AuditFailure = "failure"
)

// Select values
var (
	UserRoles     = []string{RoleAdmin, RoleViewer}
	AuditActions  = []string{AuditCreate, AuditUpdate, AuditDelete, AuditLogin, AuditAPICall}
	AuditStatuses = []string{AuditSuccess, AuditFailure}
	FetchStatuses = []string{FetchStatusSuccess, FetchStatusFailure}
)

// Limits
const (
	FetchLogRetentionDays = 30
	MaxPhotoBatchSize     = 200
)
