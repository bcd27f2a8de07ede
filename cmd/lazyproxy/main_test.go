package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"mercator-hq/lazyproxy/pkg/config"
	"mercator-hq/lazyproxy/pkg/orchestrator/orchestratortest"
)

// executeCommand runs the root command with args and returns its output.
// Persistent flags keep their values between executions, so callers pass
// --config and --env-file explicitly.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeConfigFile(t *testing.T, content string) (cfgPath, envPath string) {
	t.Helper()

	dir := t.TempDir()
	cfgPath = filepath.Join(dir, "lazyproxy.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))
	return cfgPath, filepath.Join(dir, "missing.env")
}

// closableFake adds Close to the in-memory orchestrator.
type closableFake struct {
	*orchestratortest.Fake
	closed bool
}

func (f *closableFake) Close() error {
	f.closed = true
	return nil
}

func useFakeOrchestrator(t *testing.T, fake *closableFake) {
	t.Helper()

	prev := newOrchestrator
	newOrchestrator = func(*config.Config) (closableOrchestrator, error) {
		return fake, nil
	}
	t.Cleanup(func() { newOrchestrator = prev })
}
