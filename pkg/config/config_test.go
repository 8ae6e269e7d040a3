package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadFromEnvOverridesDefaults(t *testing.T) {
	t.Setenv("AMEM_DIMENSION", "256")
	t.Setenv("AMEM_BM25_K1", "1.5")
	t.Setenv("AMEM_JOURNAL_ENABLED", "true")
	t.Setenv("AMEM_JOURNAL_DIR", "/tmp/amem-journal")

	c := LoadFromEnv()
	require.Equal(t, 256, c.Graph.Dimension)
	require.Equal(t, 1.5, c.BM25.K1)
	require.True(t, c.Journal.Enabled)
	require.NoError(t, c.Validate())
}

func TestValidateRejectsBadDimension(t *testing.T) {
	c := DefaultConfig()
	c.Graph.Dimension = 0
	require.Error(t, c.Validate())
}

func TestValidateRejectsJournalEnabledWithoutDir(t *testing.T) {
	c := DefaultConfig()
	c.Journal.Enabled = true
	c.Journal.Dir = ""
	require.Error(t, c.Validate())
}

func TestLoadFromYAMLOverridesOnlySpecifiedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "amem.yaml")
	require.NoError(t, os.WriteFile(path, []byte("graph:\n  dimension: 64\n"), 0o644))

	c, err := LoadFromYAML(path)
	require.NoError(t, err)
	require.Equal(t, 64, c.Graph.Dimension)
	require.Equal(t, 1.2, c.BM25.K1) // untouched, still the default
}
