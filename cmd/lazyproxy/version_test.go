package main

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	origVersion := Version
	Version = "0.1.0-test"
	defer func() { Version = origVersion }()

	out, err := executeCommand(t, "version")
	require.NoError(t, err)

	for _, want := range []string{"lazyproxy 0.1.0-test", "Git Commit:", runtime.Version(), runtime.GOOS + "/" + runtime.GOARCH} {
		assert.Contains(t, out, want)
	}
}

func TestVersionCommandExists(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
	assert.NotEmpty(t, versionCmd.Short)
}

func TestSubcommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"run", "services", "validate", "version", "completion"} {
		assert.Contains(t, names, want, "subcommand %q not registered", want)
	}
}
