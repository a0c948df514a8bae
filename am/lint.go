package am

import (
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/Capstone-NovoCert/novo/errors"
)

// LintReport describes a config file checked against the Config schema
type LintReport struct {
	Path       string   `json:"path"`
	Undecoded  []string `json:"undecoded"`            // keys present in the file that novo does not read
	ValidError string   `json:"valid_error,omitempty"` // Validate() failure after applying the file over defaults
}

// OK reports whether the file has no unknown keys and validates
func (r *LintReport) OK() bool {
	return len(r.Undecoded) == 0 && r.ValidError == ""
}

// Lint decodes configPath strictly and reports keys that do not map onto
// Config. Typos like "store.backnd" are silently ignored by viper, so this is
// the only place they surface.
func Lint(configPath string) (*LintReport, error) {
	cfg := Defaults()
	md, err := toml.DecodeFile(configPath, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", configPath)
	}

	report := &LintReport{Path: configPath, Undecoded: []string{}}
	for _, key := range md.Undecoded() {
		report.Undecoded = append(report.Undecoded, key.String())
	}
	sort.Strings(report.Undecoded)

	if err := cfg.Validate(); err != nil {
		report.ValidError = err.Error()
	}
	return report, nil
}
