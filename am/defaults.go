package am

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Store defaults
	v.SetDefault("store.backend", BackendJSON)
	v.SetDefault("store.dir", "~/.novo/data")
	v.SetDefault("store.sqlite_path", "")
	v.SetDefault("store.eager_load", false)

	// Interpreter discovery, most specific first
	v.SetDefault("runtime.java.candidates", []string{
		"/opt/homebrew/opt/openjdk@21/bin/java",
		"/opt/homebrew/opt/openjdk@17/bin/java",
		"/opt/homebrew/opt/openjdk@11/bin/java",
		"/opt/homebrew/opt/openjdk/bin/java",
		"/usr/bin/java",
		"java",
	})
	v.SetDefault("runtime.java.version_args", []string{"-version"})
	v.SetDefault("runtime.java.min_version", "")
	v.SetDefault("runtime.python.candidates", []string{
		"/opt/homebrew/bin/python3",
		"/usr/bin/python3",
		"/usr/local/bin/python3",
		"python3",
		"python",
	})
	v.SetDefault("runtime.python.version_args", []string{"--version"})
	v.SetDefault("runtime.python.min_version", "")
	v.SetDefault("runtime.probe_timeout_seconds", 5)

	// Tools
	v.SetDefault("tools.decoy.jar", "binaries/decoy/PrecursorSwap.jar")
	v.SetDefault("tools.decoy.jvm_options", "")
	v.SetDefault("tools.denovo.module", "casanovo")

	// Pipeline limits
	v.SetDefault("pipeline.timeout_seconds", 0)    // Tools routinely run for hours
	v.SetDefault("pipeline.kill_grace_seconds", 10) // SIGTERM, then SIGKILL

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
}

// BindEnvVars binds the settings most often overridden per shell session
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("store.dir", "NOVO_STORE_DIR")
	v.BindEnv("store.backend", "NOVO_STORE_BACKEND")
	v.BindEnv("tools.decoy.jar", "NOVO_DECOY_JAR")
	v.BindEnv("log.level", "NOVO_LOG_LEVEL")
	v.BindEnv("log.file", "NOVO_LOG_FILE")
}

// ResolvedDir returns the data directory with ~ expanded
func (s StoreConfig) ResolvedDir() string {
	if s.Dir == "" {
		return ExpandHome("~/.novo/data")
	}
	return ExpandHome(s.Dir)
}

// ResolvedSQLitePath returns the sqlite database path (default: <dir>/novo.db)
func (s StoreConfig) ResolvedSQLitePath() string {
	if s.SQLitePath == "" {
		return filepath.Join(s.ResolvedDir(), "novo.db")
	}
	return ExpandHome(s.SQLitePath)
}

// GetStoreDir returns the data directory with ~ expanded
func (c *Config) GetStoreDir() string {
	return c.Store.ResolvedDir()
}

// GetSQLitePath returns the sqlite database path
func (c *Config) GetSQLitePath() string {
	return c.Store.ResolvedSQLitePath()
}

// ProbeTimeout returns the per-candidate probe timeout (default: 5s)
func (c *Config) ProbeTimeout() time.Duration {
	if c.Runtime.ProbeTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Runtime.ProbeTimeoutSeconds) * time.Second
}

// Timeout returns the per-execution timeout, zero meaning none
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Pipeline.TimeoutSeconds) * time.Second
}

// KillGrace returns how long a cancelled tool gets between SIGTERM and SIGKILL
func (c *Config) KillGrace() time.Duration {
	return time.Duration(c.Pipeline.KillGraceSeconds) * time.Second
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Store: {Backend: %s, Dir: %s}, Pipeline: {TimeoutSeconds: %d}, Log: {Level: %s}}",
		c.Store.Backend, c.Store.Dir, c.Pipeline.TimeoutSeconds, c.Log.Level)
}
