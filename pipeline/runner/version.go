package runner

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	// `openjdk version "21.0.2"`, `java version "1.8.0_392"`
	quotedVersion = regexp.MustCompile(`(?i)version\s+"(\d+(?:\.\d+){0,2})`)
	// `Python 3.11.4`, `openjdk 17.0.9 2023-10-17`
	bareVersion = regexp.MustCompile(`\b(\d+\.\d+(?:\.\d+)?)\b`)
)

// ParseVersion extracts an interpreter version from the output of a version
// query. Legacy Java "1.x" versions are reported as major version x.
func ParseVersion(output string) (*semver.Version, bool) {
	raw := ""
	if m := quotedVersion.FindStringSubmatch(output); m != nil {
		raw = m[1]
	} else if m := bareVersion.FindStringSubmatch(output); m != nil {
		raw = m[1]
	}
	if raw == "" {
		return nil, false
	}

	if rest, ok := strings.CutPrefix(raw, "1."); ok {
		raw = rest
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, false
	}
	return v, true
}
