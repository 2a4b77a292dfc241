package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// writeFixture marshals a fixture struct to YAML (rather than hand-writing
// raw YAML text, so fixture shape stays in lockstep with PipelineConfig)
// and writes it under t.TempDir().
func writeFixture(t *testing.T, v any) string {
	t.Helper()
	data, err := yaml.Marshal(v)
	require.NoError(t, err)
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

type fixtureCfg struct {
	Name         string `yaml:"name"`
	EnableSeg    bool   `yaml:"enable_seg"`
	EnableDetect bool   `yaml:"enable_detect"`
	EnableTrack  bool   `yaml:"enable_track"`
	ThreadsSeg   int    `yaml:"threads_seg"`
}

func TestLoadValidConfig(t *testing.T) {
	path := writeFixture(t, fixtureCfg{
		Name: "demo", EnableSeg: true, EnableDetect: true, EnableTrack: true, ThreadsSeg: 4,
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Name)
	assert.True(t, cfg.EnableSeg)
	assert.True(t, cfg.EnableDetect)
	assert.True(t, cfg.EnableTrack)
	assert.Equal(t, 4, cfg.ThreadsSeg)
	assert.Equal(t, 1, cfg.ThreadsMask, "unset thread counts default to 1")
}

func TestLoadRejectsInvalidStageDependency(t *testing.T) {
	path := writeFixture(t, fixtureCfg{Name: "bad", EnableTrack: true})

	_, err := Load(path)
	assert.Error(t, err, "enable_track without enable_detect should fail Validate")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HIGHWAY_EVENT_THREADS_SEG", "7")

	path := writeFixture(t, fixtureCfg{Name: "env-test", EnableSeg: true})
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.ThreadsSeg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadLogConfigReadsOutputs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
name: demo
log:
  level: debug
  format: json
  outputs:
    - type: console
    - type: file
      path: ` + filepath.Join(dir, "pipeline.log") + `
      max_size_mb: 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	logCfg, err := LoadLogConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", logCfg.Level)
	assert.Equal(t, "json", logCfg.Format)
	require.Len(t, logCfg.Outputs, 2)
	assert.Equal(t, "file", logCfg.Outputs[1].Type)
	assert.Equal(t, 50, logCfg.Outputs[1].MaxSizeMB)
}
