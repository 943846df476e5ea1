package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvMASTURL, EnvTESSCutURL, EnvCacheDir, EnvDebug, "TASOCTPF_HOME"} {
		t.Setenv(k, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "https://mast.stsci.edu", cfg.Archive.BaseURL)
	assert.True(t, cfg.Cache.Enabled)
	assert.False(t, cfg.Logging.DebugMode)

	d, err := cfg.ArchiveTimeout()
	if err != nil {
		t.Fatalf("ArchiveTimeout: %v", err)
	}
	assert.Equal(t, 120*time.Second, d)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assert.Equal(t, Default().Archive.BaseURL, cfg.Archive.BaseURL)
}

func TestSaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Archive.BaseURL = "http://localhost:8407"
	cfg.Cutout.Timeout = "42s"
	cfg.Logging.DebugMode = true

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assert.Equal(t, "http://localhost:8407", loaded.Archive.BaseURL)
	assert.Equal(t, "42s", loaded.Cutout.Timeout)
	assert.True(t, loaded.Logging.DebugMode)
}

func TestLoad_BadTimeout(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Archive.Timeout = "soon"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "archive.timeout")
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvMASTURL, "http://mast.test")
	t.Setenv(EnvCacheDir, "/var/cache/tpf")
	t.Setenv(EnvDebug, "1")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assert.Equal(t, "http://mast.test", cfg.Archive.BaseURL)
	assert.Equal(t, "/var/cache/tpf", cfg.Cache.Dir)
	assert.True(t, cfg.Logging.DebugMode)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestHome_EnvOverride(t *testing.T) {
	t.Setenv("TASOCTPF_HOME", "/tmp/tpfhome")
	assert.Equal(t, "/tmp/tpfhome", Home())
	assert.Equal(t, filepath.Join("/tmp/tpfhome", "config.yaml"), DefaultPath())
}
