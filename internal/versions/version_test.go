package versions

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionInfoWithValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		version       string
		commit        string
		buildDate     string
		settings      map[string]string
		wantVersion   string
		wantCommit    string
		wantBuildDate string
	}{
		{
			name:          "release build keeps ldflags values",
			version:       "v1.2.3",
			commit:        "abcdef1234567890",
			buildDate:     "2024-05-01T10:00:00Z",
			settings:      map[string]string{"vcs.revision": "ignored"},
			wantVersion:   "v1.2.3",
			wantCommit:    "abcdef1234567890",
			wantBuildDate: "2024-05-01 10:00:00 UTC",
		},
		{
			name:          "dev build falls back to VCS settings",
			version:       "dev",
			commit:        unknownStr,
			buildDate:     unknownStr,
			settings:      map[string]string{"vcs.revision": "0123456789abcdef", "vcs.time": "2024-06-02T03:04:05Z"},
			wantVersion:   "build-01234567",
			wantCommit:    "0123456789abcdef",
			wantBuildDate: "2024-06-02 03:04:05 UTC",
		},
		{
			name:          "dev build without VCS info",
			version:       "dev",
			commit:        unknownStr,
			buildDate:     unknownStr,
			settings:      map[string]string{},
			wantVersion:   "build-unknown",
			wantCommit:    unknownStr,
			wantBuildDate: unknownStr,
		},
		{
			name:          "unparseable build date is kept verbatim",
			version:       "v0.1.0",
			commit:        "c",
			buildDate:     "yesterday",
			wantVersion:   "v0.1.0",
			wantCommit:    "c",
			wantBuildDate: "yesterday",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info := getVersionInfoWithValues(tt.version, tt.commit, tt.buildDate, tt.settings)
			assert.Equal(t, tt.wantVersion, info.Version)
			assert.Equal(t, tt.wantCommit, info.Commit)
			assert.Equal(t, tt.wantBuildDate, info.BuildDate)
			assert.Equal(t, runtime.Version(), info.GoVersion)
			assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
		})
	}
}
