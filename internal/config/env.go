package config

import "os"

// Environment variables read by ApplyEnv.
const (
	EnvUserAgent = "DRUGINDEX_USER_AGENT"
	EnvBaseURL   = "DRUGINDEX_BASE_URL"
	EnvProxy     = "DRUGINDEX_PROXY"
	EnvDBDir     = "DRUGINDEX_DB_DIR"
)

// ApplyEnv overrides cfg with the DRUGINDEX_* environment variables that are set.
// A .env file loaded beforehand by the CLI is visible here as well.
func ApplyEnv(cfg *Config) {
	applyEnv(cfg, os.Getenv)
}

func applyEnv(cfg *Config, getenv func(string) string) {
	setString(&cfg.UserAgent, getenv(EnvUserAgent))
	setString(&cfg.BaseURL, getenv(EnvBaseURL))
	setString(&cfg.Proxy, getenv(EnvProxy))
	setString(&cfg.DBDir, getenv(EnvDBDir))
}
