package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"physioreport/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{ScratchDir: t.TempDir(), LogLevel: "info", Environment: "development"}
}

func TestRunWritesNamedReport(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, run(testConfig(t), zap.NewNop(), "P001", "notes", "", out))

	data, err := os.ReadFile(filepath.Join(out, "P001_physio_report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(data[:5]))
}

func TestRunDefaultName(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, run(testConfig(t), zap.NewNop(), "", "", "", out))

	_, err := os.Stat(filepath.Join(out, "physio_report.pdf"))
	assert.NoError(t, err)
}

func TestRunRejectsVideoExtension(t *testing.T) {
	out := t.TempDir()
	err := run(testConfig(t), zap.NewNop(), "P001", "", "clip.mov", out)
	assert.Error(t, err)

	entries, _ := os.ReadDir(out)
	assert.Empty(t, entries)
}

func TestRunMissingVideo(t *testing.T) {
	err := run(testConfig(t), zap.NewNop(), "P001", "", filepath.Join(t.TempDir(), "missing.mp4"), t.TempDir())
	assert.Error(t, err)
}
