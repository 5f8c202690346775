package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want Config
	}{
		{
			name: "defaults",
			env:  map[string]string{},
			want: Config{
				PhotoCacheTTL: DefaultPhotoCacheTTL,
				FetchTimeout:  DefaultFetchTimeout,
			},
		},
		{
			name: "all set",
			env: map[string]string{
				"LEADERBOARD_CSV_URL":   "https://sheets.example/leaderboard.csv",
				"PHOTO_CSV_URL":         "https://sheets.example/photos.csv",
				"PHOTO_CACHE_TTL":       "2m",
				"PHOTO_CSV_NAIVE_SPLIT": "true",
				"SHEETS_FETCH_TIMEOUT":  "3s",
			},
			want: Config{
				LeaderboardCSVURL: "https://sheets.example/leaderboard.csv",
				PhotoCSVURL:       "https://sheets.example/photos.csv",
				PhotoCacheTTL:     2 * time.Minute,
				PhotoNaiveSplit:   true,
				FetchTimeout:      3 * time.Second,
			},
		},
		{
			name: "invalid values fall back",
			env: map[string]string{
				"PHOTO_CACHE_TTL":       "soon",
				"PHOTO_CSV_NAIVE_SPLIT": "sometimes",
				"SHEETS_FETCH_TIMEOUT":  "-1s",
			},
			want: Config{
				PhotoCacheTTL: DefaultPhotoCacheTTL,
				FetchTimeout:  DefaultFetchTimeout,
			},
		},
	}

	keys := []string{"LEADERBOARD_CSV_URL", "PHOTO_CSV_URL", "PHOTO_CACHE_TTL", "PHOTO_CSV_NAIVE_SPLIT", "SHEETS_FETCH_TIMEOUT"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range keys {
				t.Setenv(k, tt.env[k])
			}
			assert.Equal(t, tt.want, LoadConfig())
		})
	}
}
