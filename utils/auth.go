package utils

import (
	"net/http"

	"github.com/apex/log"
	"github.com/pocketbase/pocketbase/core"
)

// RequireAuth rejects requests without a signed-in user or superuser.
func RequireAuth(e *core.RequestEvent) error {
	if e.Auth == nil {
		log.Warnf("[Auth] Unauthorized request to %s from %s", e.Request.URL.Path, e.RealIP())
		return ErrorResponse(e, http.StatusUnauthorized, "Unauthorized")
	}
	return e.Next()
}

// RequireAdmin rejects requests from anyone but admins and superusers.
func RequireAdmin(e *core.RequestEvent) error {
	if e.Auth == nil {
		log.Warnf("[Auth] Unauthorized request to %s from %s", e.Request.URL.Path, e.RealIP())
		return ErrorResponse(e, http.StatusUnauthorized, "Unauthorized")
	}
	if !HasRole(e.Auth, RoleAdmin) {
		log.WithField("user", e.Auth.Id).Warnf("[Auth] Forbidden request to %s", e.Request.URL.Path)
		return ErrorResponse(e, http.StatusForbidden, "Forbidden")
	}
	return e.Next()
}

// HasRole reports whether record holds role. Superusers hold every role.
func HasRole(record *core.Record, role string) bool {
	if record == nil {
		return false
	}
	if record.IsSuperuser() {
		return true
	}
	return record.GetString(FieldRole) == role
}
