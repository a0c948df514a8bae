package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
		ok     bool
	}{
		{"openjdk 21", "openjdk version \"21.0.2\" 2024-01-16\nOpenJDK Runtime Environment Homebrew", "21.0.2", true},
		{"legacy java 8", "java version \"1.8.0_392\"\nJava(TM) SE Runtime Environment", "8.0.0", true},
		{"java 11 major only", "openjdk version \"11\" 2018-09-25", "11.0.0", true},
		{"python", "Python 3.11.4\n", "3.11.4", true},
		{"bare openjdk line", "openjdk 17.0.9 2023-10-17", "17.0.9", true},
		{"no version", "command not found", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := ParseVersion(tt.output)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, v.String())
			}
		})
	}
}
