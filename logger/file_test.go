package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitializeWithFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "novo.log")
	t.Cleanup(func() { Logger = zap.NewNop().Sugar() })

	require.NoError(t, Initialize(false, "info", FileSink{Path: path, MaxSizeMB: 1}))
	Infow("execution finished", FieldExecutionID, "abc")
	Debugw("below level")
	Cleanup()
	assert.Nil(t, rotator)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "execution finished", entry["msg"])
	assert.Equal(t, "abc", entry[FieldExecutionID])
}

func TestInitializeEmptySinkWritesNoFile(t *testing.T) {
	t.Cleanup(func() { Logger = zap.NewNop().Sugar() })

	require.NoError(t, Initialize(false, "info", FileSink{}))
	assert.Nil(t, rotator)
}
