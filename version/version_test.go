package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetDefaults(t *testing.T) {
	info := Get()
	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
	assert.False(t, info.Tagged())
	assert.Equal(t, "novo dev (commit dev, built unknown)", info.String())
}

func TestTaggedBuild(t *testing.T) {
	info := Info{
		Version:    "v0.3.0",
		CommitHash: "4f2a9c1e88d0b7a6",
		BuildTime:  "2024-05-01T10:00:00Z",
	}
	assert.True(t, info.Tagged())
	assert.Equal(t, "4f2a9c1", info.Short())
	assert.Equal(t, "novo v0.3.0 (commit 4f2a9c1, built 2024-05-01T10:00:00Z)", info.String())
}

func TestShortKeepsShortHashes(t *testing.T) {
	assert.Equal(t, "abc", Info{CommitHash: "abc"}.Short())
}
