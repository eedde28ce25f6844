//go:build !integration

package main

import (
	"context"
	"testing"

	"github.com/spf13/cobra"

	"github.com/harborline/dealdesk-cli/internal/config"
)

// setTestConfig points the package config at a fresh json store and restores
// the previous config when the test ends. Returns the store directory.
func setTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old := cfg
	cfg = &config.Config{
		Store:   config.StoreConfig{Driver: "json", Dir: dir},
		Log:     config.LogConfig{Level: "info", Format: "json"},
		Archive: config.ArchiveConfig{RetentionDays: 365},
	}
	t.Cleanup(func() { cfg = old })
	return dir
}

// withContext gives the command a real context for a direct RunE call.
func withContext(t *testing.T, cmd *cobra.Command) {
	t.Helper()
	cmd.SetContext(context.Background())
	t.Cleanup(func() { cmd.SetContext(context.TODO()) })
}
