package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionCmd(t *testing.T) {
	defer func() { versionShort = false }()

	tests := []struct {
		name     string
		short    bool
		contains []string
		exact    string
	}{
		{name: "full", contains: []string{"signalbot " + Version, "Git commit:", "Build time:", "Go:"}},
		{name: "short", short: true, exact: Version + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			versionCmd.SetOut(&out)
			versionShort = tt.short

			versionCmd.Run(versionCmd, nil)

			if tt.exact != "" {
				assert.Equal(t, tt.exact, out.String())
			}
			for _, s := range tt.contains {
				assert.Contains(t, out.String(), s)
			}
		})
	}
}

func TestBuildStamp_PrefersLinkerValues(t *testing.T) {
	oldCommit, oldBuilt := GitCommit, BuildTime
	defer func() { GitCommit, BuildTime = oldCommit, oldBuilt }()

	GitCommit, BuildTime = "abc1234", "2026-01-02T03:04:05Z"
	commit, built := buildStamp()
	assert.Equal(t, "abc1234", commit)
	assert.Equal(t, "2026-01-02T03:04:05Z", built)
}
