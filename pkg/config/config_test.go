package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volumeio/internal/models"
)

func TestLoadConfigMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, models.NoDataType, cfg.DataType())
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volumeio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
decode:
  dataType: uint8
  useOffsets: true
  workers: 2
output:
  slicesDir: out/slices
metrics:
  listenAddress: ":9090"
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, models.UnsignedByte, cfg.DataType())
	assert.True(t, cfg.Decode.UseOffsets)
	assert.Equal(t, 2, cfg.Decode.Workers)
	assert.Equal(t, "out/slices", cfg.Output.SlicesDir)
	assert.Equal(t, ":9090", cfg.Metrics.ListenAddress)
	// untouched keys keep their defaults
	assert.True(t, cfg.Output.Stats)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"type.yaml":    "decode:\n  dataType: complex64\n",
		"workers.yaml": "decode:\n  workers: 0\n",
		"syntax.yaml":  "decode: [\n",
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
		_, err := LoadConfig(path)
		assert.Error(t, err, name)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "volumeio.yaml")
	cfg := DefaultConfig()
	cfg.Decode.DataType = "int16"
	cfg.Output.Verbose = true

	require.NoError(t, SaveConfig(cfg, path))
	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))
	_, err := os.Stat(path)
	require.NoError(t, err)
}
