package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShellConfigCreatesConfigDirAndDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TARNSH_CONFIG_DIR", dir)

	cfg, err := NewShellConfig("1.0.0-test", false)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.ConfigDir)
	assert.Equal(t, " \t\n", cfg.UserConfig.IFS)
	assert.Equal(t, "$ ", cfg.UserConfig.PS1)

	_, err = os.Stat(filepath.Join(dir, "config.yml"))
	assert.NoError(t, err, "config.yml should be created when absent")
}

func TestNewShellConfigMergesUserFileOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TARNSH_CONFIG_DIR", dir)

	err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte("ps1: \"tarnsh> \"\n"), 0o644)
	require.NoError(t, err)

	cfg, err := NewShellConfig("1.0.0-test", false)
	require.NoError(t, err)

	assert.Equal(t, "tarnsh> ", cfg.UserConfig.PS1)
	assert.Equal(t, " \t\n", cfg.UserConfig.IFS, "fields the file doesn't set keep the default")
}

func TestNewShellConfigDebugFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TARNSH_CONFIG_DIR", dir)
	t.Setenv("TARNSH_DEBUG", "1")

	cfg, err := NewShellConfig("1.0.0-test", false)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
}
