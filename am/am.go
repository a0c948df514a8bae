package am

// Config represents the novo configuration
type Config struct {
	Store    StoreConfig    `mapstructure:"store" toml:"store" json:"store" yaml:"store"`
	Runtime  RuntimeConfig  `mapstructure:"runtime" toml:"runtime" json:"runtime" yaml:"runtime"`
	Tools    ToolsConfig    `mapstructure:"tools" toml:"tools" json:"tools" yaml:"tools"`
	Pipeline PipelineConfig `mapstructure:"pipeline" toml:"pipeline" json:"pipeline" yaml:"pipeline"`
	Log      LogConfig      `mapstructure:"log" toml:"log" json:"log" yaml:"log"`
}

// StoreConfig configures the execution store
type StoreConfig struct {
	Backend    string `mapstructure:"backend" toml:"backend" json:"backend" yaml:"backend"`                 // json, memory or sqlite
	Dir        string `mapstructure:"dir" toml:"dir" json:"dir" yaml:"dir"`                                 // Data directory for partition files and backups
	SQLitePath string `mapstructure:"sqlite_path" toml:"sqlite_path" json:"sqlite_path" yaml:"sqlite_path"` // Empty = <dir>/novo.db
	EagerLoad  bool   `mapstructure:"eager_load" toml:"eager_load" json:"eager_load" yaml:"eager_load"`     // Load every partition at construction
}

// RuntimeConfig configures interpreter discovery
type RuntimeConfig struct {
	Java                InterpreterConfig `mapstructure:"java" toml:"java" json:"java" yaml:"java"`
	Python              InterpreterConfig `mapstructure:"python" toml:"python" json:"python" yaml:"python"`
	ProbeTimeoutSeconds int               `mapstructure:"probe_timeout_seconds" toml:"probe_timeout_seconds" json:"probe_timeout_seconds" yaml:"probe_timeout_seconds"`
}

// InterpreterConfig lists where to look for an interpreter and how to check it
type InterpreterConfig struct {
	Candidates  []string `mapstructure:"candidates" toml:"candidates" json:"candidates" yaml:"candidates"`
	VersionArgs []string `mapstructure:"version_args" toml:"version_args" json:"version_args" yaml:"version_args"`
	MinVersion  string   `mapstructure:"min_version" toml:"min_version" json:"min_version" yaml:"min_version"` // semver constraint floor, empty = any
}

// ToolsConfig configures the external analysis tools
type ToolsConfig struct {
	Decoy  DecoyToolConfig  `mapstructure:"decoy" toml:"decoy" json:"decoy" yaml:"decoy"`
	Denovo DenovoToolConfig `mapstructure:"denovo" toml:"denovo" json:"denovo" yaml:"denovo"`
}

// DecoyToolConfig configures the decoy spectra generator
type DecoyToolConfig struct {
	Jar        string `mapstructure:"jar" toml:"jar" json:"jar" yaml:"jar"`
	JVMOptions string `mapstructure:"jvm_options" toml:"jvm_options" json:"jvm_options" yaml:"jvm_options"` // shell-quoted extra JVM flags
}

// DenovoToolConfig configures the de novo sequencer
type DenovoToolConfig struct {
	Module string `mapstructure:"module" toml:"module" json:"module" yaml:"module"` // python -m <module>
}

// PipelineConfig configures execution limits
type PipelineConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds" yaml:"timeout_seconds"`          // 0 = no timeout
	KillGraceSeconds int `mapstructure:"kill_grace_seconds" toml:"kill_grace_seconds" json:"kill_grace_seconds" yaml:"kill_grace_seconds"` // SIGTERM to SIGKILL delay
}

// LogConfig configures the global logger
type LogConfig struct {
	JSON  bool   `mapstructure:"json" toml:"json" json:"json" yaml:"json"`
	Level string `mapstructure:"level" toml:"level" json:"level" yaml:"level"`

	// Optional rotated JSON log file, in addition to stderr
	File       string `mapstructure:"file" toml:"file" json:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" toml:"max_age_days" json:"max_age_days" yaml:"max_age_days"`
}

// Store backends
const (
	BackendJSON   = "json"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)
