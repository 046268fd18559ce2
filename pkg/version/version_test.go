package version

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func withBuildInfo(t *testing.T, bi *debug.BuildInfo) {
	t.Helper()
	orig := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
	t.Cleanup(func() { readBuildInfo = orig })
}

func TestGetInfoWithoutBuildInfo(t *testing.T) {
	withBuildInfo(t, nil)

	info := GetInfo()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, GitCommit, info.GitCommit)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestGetInfoFallsBackToBuildInfo(t *testing.T) {
	withBuildInfo(t, &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/vrplayer/vrprobe", Version: "v0.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	info := GetInfo()
	assert.Equal(t, "v0.4.0", info.Version)
	assert.Equal(t, "0123456789ab", info.GitCommit)
	assert.Equal(t, "2026-10-01T12:00:00Z", info.BuildTime)
	assert.True(t, info.Modified)
	assert.Contains(t, info.String(), "commit: 0123456789ab-dirty")
}

func TestGetInfoPrefersLinkerFlags(t *testing.T) {
	withBuildInfo(t, &debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "feedface"}},
	})
	origVersion, origCommit := Version, GitCommit
	Version, GitCommit = "1.2.3", "abc1234"
	t.Cleanup(func() { Version, GitCommit = origVersion, origCommit })

	info := GetInfo()
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, "abc1234", info.GitCommit)
}

func TestGetInfoIgnoresDevelVersion(t *testing.T) {
	withBuildInfo(t, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})

	assert.Equal(t, Version, GetInfo().Version)
}

func TestInfoString(t *testing.T) {
	info := Info{
		Version:   "0.3.1",
		GitCommit: "9f2c1d0",
		BuildTime: "2026-10-01",
		GoVersion: "go1.24.3",
		Platform:  "darwin/arm64",
	}

	assert.Equal(t, "vrprobe 0.3.1 (commit: 9f2c1d0, built: 2026-10-01, go1.24.3 darwin/arm64)", info.String())
	assert.Equal(t, "vrprobe 0.3.1", info.Short())
}
