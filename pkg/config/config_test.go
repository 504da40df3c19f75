package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)
	assert.Equal(t, 0, cfg.Fire.MaxCycles)
	assert.Equal(t, "INFO", cfg.Logging.Severity)
	assert.True(t, cfg.Aggregates.EmitEmptyGroups)
}

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	content := `
fire:
  max_cycles: 500
logging:
  severity: DEBUG
aggregates:
  emit_empty_groups: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Fire.MaxCycles)
	assert.Equal(t, "DEBUG", cfg.Logging.Severity)
	assert.False(t, cfg.Aggregates.EmitEmptyGroups)
}

func TestLoadRejectsInvalidSeverity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  severity: LOUD\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of")
}

func TestLoadRejectsNegativeMaxCycles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fire:\n  max_cycles: -1\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be negative")
}

func TestValidateNilConfig(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)
	err = v.ValidateConfig(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config is nil")
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fire: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
