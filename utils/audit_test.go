package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSourceFailureEntry(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/leaderboard-data", nil)
	r.Header.Set("User-Agent", "dashboard-test")

	entry := sourceFailureEntry(r, nil, "203.0.113.9", SourceLeaderboard, errors.New("sheets: export returned status 403"))

	assert.Equal(t, AuditAPICall, entry.Action)
	assert.Equal(t, SourceLeaderboard, entry.ResourceType)
	assert.Equal(t, AuditFailure, entry.Status)
	assert.Equal(t, "203.0.113.9", entry.IPAddress)
	assert.Equal(t, "dashboard-test", entry.UserAgent)
	assert.Equal(t, "sheets: export returned status 403", entry.ErrorMessage)
	assert.Empty(t, entry.UserID, "anonymous requests carry no user")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Len(t, truncate(strings.Repeat("x", 2*maxAuditMessage), maxAuditMessage), maxAuditMessage)

	// "é" is two bytes; cutting inside it backs off to the previous rune.
	assert.Equal(t, "ab", truncate("abé", 3))
	assert.Equal(t, "abé", truncate("abéd", 4))
	long := strings.Repeat("é", maxAuditMessage)
	cut := truncate(long, maxAuditMessage-1)
	assert.True(t, utf8.ValidString(cut))
	assert.Len(t, cut, maxAuditMessage-2)
}
