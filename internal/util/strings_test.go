package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsAny(t *testing.T) {
	markers := []string{"ModuleNotFoundError", "ImportError"}
	assert.True(t, ContainsAny("Traceback\nImportError: cannot import name", markers))
	assert.False(t, ContainsAny("RuntimeError: CUDA out of memory", markers))
	assert.False(t, ContainsAny("anything", nil))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "yaml: line 3", FirstLine("yaml: line 3\nmapping values are not allowed"))
	assert.Equal(t, "single", FirstLine("single"))
	assert.Equal(t, "", FirstLine(""))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"java.lang.UnsupportedClassVersionError", 10, "java.lang…"},
		{"héllo wörld", 6, "héllo…"},
		{"abc", 1, "…"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.in, tt.n), "Truncate(%q, %d)", tt.in, tt.n)
	}
}

func TestPtr(t *testing.T) {
	p := Ptr(42)
	*p = 7
	assert.Equal(t, 7, *Ptr(*p))
}
