package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedFetches struct {
	entries []FetchLogEntry
}

func (r *recordedFetches) RecordFetch(entry FetchLogEntry) {
	r.entries = append(r.entries, entry)
}

func TestTrackFetch(t *testing.T) {
	rec := &recordedFetches{}

	err := TrackFetch(rec, SourceLeaderboard, func() (int, error) { return 12, nil })
	require.NoError(t, err)

	boom := errors.New("sheets: export returned status 500")
	err = TrackFetch(rec, SourcePhotos, func() (int, error) { return 4, boom })
	assert.ErrorIs(t, err, boom)

	require.Len(t, rec.entries, 2)
	assert.Equal(t, SourceLeaderboard, rec.entries[0].Source)
	assert.Equal(t, FetchStatusSuccess, rec.entries[0].Status)
	assert.Equal(t, 12, rec.entries[0].Rows)
	assert.Empty(t, rec.entries[0].Error)

	assert.Equal(t, SourcePhotos, rec.entries[1].Source)
	assert.Equal(t, FetchStatusFailure, rec.entries[1].Status)
	assert.Zero(t, rec.entries[1].Rows)
	assert.Equal(t, boom.Error(), rec.entries[1].Error)
}

func TestTrackFetchNilLogger(t *testing.T) {
	called := false
	err := TrackFetch(nil, SourceLeaderboard, func() (int, error) {
		called = true
		return 0, nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}
