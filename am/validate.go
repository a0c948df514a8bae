package am

import (
	"github.com/Masterminds/semver/v3"

	"github.com/Capstone-NovoCert/novo/errors"
	"github.com/Capstone-NovoCert/novo/logger"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendJSON, BackendMemory, BackendSQLite:
	default:
		return errors.Newf("store.backend must be one of json, memory, sqlite; got %q", c.Store.Backend)
	}
	if c.Store.Backend != BackendMemory && c.Store.Dir == "" {
		return errors.New("store.dir cannot be empty for a durable backend")
	}

	if len(c.Runtime.Java.Candidates) == 0 {
		return errors.New("runtime.java.candidates cannot be empty")
	}
	if len(c.Runtime.Python.Candidates) == 0 {
		return errors.New("runtime.python.candidates cannot be empty")
	}
	if err := validateMinVersion("runtime.java.min_version", c.Runtime.Java.MinVersion); err != nil {
		return err
	}
	if err := validateMinVersion("runtime.python.min_version", c.Runtime.Python.MinVersion); err != nil {
		return err
	}

	// 0 = default probe timeout, negative = invalid
	if c.Runtime.ProbeTimeoutSeconds < 0 {
		return errors.Newf("runtime.probe_timeout_seconds must be >= 0, got %d", c.Runtime.ProbeTimeoutSeconds)
	}

	if c.Tools.Decoy.Jar == "" {
		return errors.New("tools.decoy.jar cannot be empty")
	}
	if c.Tools.Denovo.Module == "" {
		return errors.New("tools.denovo.module cannot be empty")
	}

	// 0 = no timeout, negative = invalid
	if c.Pipeline.TimeoutSeconds < 0 {
		return errors.Newf("pipeline.timeout_seconds must be >= 0, got %d", c.Pipeline.TimeoutSeconds)
	}
	if c.Pipeline.KillGraceSeconds < 0 {
		return errors.Newf("pipeline.kill_grace_seconds must be >= 0, got %d", c.Pipeline.KillGraceSeconds)
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return errors.New("log rotation limits must be >= 0")
	}

	return nil
}

func validateMinVersion(key, value string) error {
	if value == "" {
		return nil
	}
	if _, err := semver.NewVersion(value); err != nil {
		return errors.Wrapf(err, "%s must be a semantic version, got %q", key, value)
	}
	return nil
}
