package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"

	"github.com/grtshw/lead-dispatch/utils"
)

var auditLogs = logCollection{
	name: utils.CollectionAuditLogs,
	fields: []core.Field{
		&core.TextField{Id: "audit_user_id", Name: "user_id", Max: 50},
		&core.TextField{Id: "audit_user_email", Name: "user_email", Max: 200},
		&core.SelectField{Id: "audit_action", Name: "action", Required: true, MaxSelect: 1, Values: utils.AuditActions},
		&core.TextField{Id: "audit_resource_type", Name: "resource_type", Required: true, Max: 50},
		&core.TextField{Id: "audit_resource_id", Name: "resource_id", Max: 50},
		&core.TextField{Id: "audit_ip_address", Name: "ip_address", Max: 45},
		&core.TextField{Id: "audit_user_agent", Name: "user_agent", Max: 500},
		&core.JSONField{Id: "audit_changes", Name: "changes", MaxSize: 50000},
		&core.SelectField{Id: "audit_status", Name: "status", Required: true, MaxSelect: 1, Values: utils.AuditStatuses},
		&core.TextField{Id: "audit_error_message", Name: "error_message", Max: 1000},
	},
	indexes: []string{
		"CREATE INDEX idx_audit_action ON audit_logs (action)",
		"CREATE INDEX idx_audit_resource ON audit_logs (resource_type, resource_id)",
		"CREATE INDEX idx_audit_created ON audit_logs (created)",
	},
	readRule: "@request.auth.role = 'admin'",
}

func init() {
	m.Register(auditLogs.create, auditLogs.drop)
}
