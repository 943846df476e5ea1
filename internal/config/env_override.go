package config

import (
	"os"
	"strconv"
)

// Environment overrides. These beat both defaults and the config file,
// which keeps scripted use (CI, cron refreshes of a TPF collection)
// from having to write config files.
const (
	EnvMASTURL    = "TASOCTPF_MAST_URL"
	EnvTESSCutURL = "TASOCTPF_TESSCUT_URL"
	EnvCacheDir   = "TASOCTPF_CACHE_DIR"
	EnvDebug      = "TASOCTPF_DEBUG"
)

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvMASTURL); v != "" {
		cfg.Archive.BaseURL = v
	}
	if v := os.Getenv(EnvTESSCutURL); v != "" {
		cfg.Cutout.BaseURL = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv(EnvDebug); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Logging.DebugMode = b
			if b && cfg.Logging.Level == "info" {
				cfg.Logging.Level = "debug"
			}
		}
	}
}
