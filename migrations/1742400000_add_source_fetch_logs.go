package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"

	"github.com/grtshw/lead-dispatch/utils"
)

// sourceFetchLogs records every leaderboard and photo sheet download.
var sourceFetchLogs = logCollection{
	name: utils.CollectionSourceFetchLogs,
	fields: []core.Field{
		&core.SelectField{Id: "sfl_source", Name: "source", Required: true, MaxSelect: 1, Values: utils.Sources},
		&core.SelectField{Id: "sfl_status", Name: "status", Required: true, MaxSelect: 1, Values: utils.FetchStatuses},
		&core.NumberField{Id: "sfl_rows", Name: "rows", OnlyInt: true},
		&core.NumberField{Id: "sfl_duration_ms", Name: "duration_ms", OnlyInt: true},
		&core.TextField{Id: "sfl_error", Name: "error", Max: 1000},
	},
	indexes: []string{
		"CREATE INDEX idx_sfl_source_created ON source_fetch_logs (source, created)",
	},
	readRule: "@request.auth.id != ''",
}

func init() {
	m.Register(sourceFetchLogs.create, sourceFetchLogs.drop)
}
