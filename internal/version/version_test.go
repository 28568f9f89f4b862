package version

import (
	"encoding/json"
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()

	assert.NotEmpty(t, info.Version)
	assert.LessOrEqual(t, len(info.GitCommit), 7)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestFillFromBuildInfo(t *testing.T) {
	tests := []struct {
		name string
		info Info
		bi   debug.BuildInfo
		want Info
	}{
		{
			name: "defaults replaced",
			info: Info{Version: "dev", GitCommit: "none", BuildDate: "unknown"},
			bi: debug.BuildInfo{
				Main: debug.Module{Version: "v0.4.0"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "0123456789abcdef"},
					{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
				},
			},
			want: Info{Version: "v0.4.0", GitCommit: "0123456789abcdef", BuildDate: "2026-01-02T03:04:05Z"},
		},
		{
			name: "ldflags win",
			info: Info{Version: "v1.0.0", GitCommit: "cafebabe", BuildDate: "2026-10-01"},
			bi: debug.BuildInfo{
				Main:     debug.Module{Version: "v0.4.0"},
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789abcdef"}},
			},
			want: Info{Version: "v1.0.0", GitCommit: "cafebabe", BuildDate: "2026-10-01"},
		},
		{
			name: "devel build keeps dev",
			info: Info{Version: "dev", GitCommit: "none", BuildDate: "unknown"},
			bi:   debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			want: Info{Version: "dev", GitCommit: "none", BuildDate: "unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := tt.info
			fillFromBuildInfo(&info, &tt.bi)
			assert.Equal(t, tt.want, info)
		})
	}
}

func TestInfoString(t *testing.T) {
	info := Info{Version: "v1.2.3", GitCommit: "abc1234", BuildDate: "2026-10-19", GoVersion: "go1.25.6", Platform: "linux/amd64"}

	assert.Equal(t, "def2cmake v1.2.3 (commit: abc1234, built: 2026-10-19, go1.25.6 linux/amd64)", info.String())
}

func TestInfoJSON(t *testing.T) {
	info := GetInfo()

	jsonStr, err := info.JSON()
	require.NoError(t, err)

	var parsed Info
	require.NoError(t, json.Unmarshal([]byte(jsonStr), &parsed))

	assert.Equal(t, info, parsed)
}

func TestShortCommit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"long SHA truncated", "abc1234def5678", "abc1234"},
		{"exact 7 unchanged", "abc1234", "abc1234"},
		{"short unchanged", "abc", "abc"},
		{"empty unchanged", "", ""},
		{"none unchanged", "none", "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shortCommit(tt.input))
		})
	}
}
