package log

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/linkprobe/internal/config"
)

func TestGetLoggerBeforeInit(t *testing.T) {
	assert.NotNil(t, GetLogger())
}

func TestInitInvalidLevel(t *testing.T) {
	err := Init(config.LogConfig{Level: "verbose"})
	assert.Error(t, err)
}

func TestInitPatternAndFields(t *testing.T) {
	var buf bytes.Buffer
	err := Init(config.LogConfig{
		Level:   "debug",
		Pattern: "[%level] %field %msg\n",
		Output:  &buf,
	})
	require.NoError(t, err)

	GetLogger().WithFields(map[string]interface{}{
		"target": "10.0.0.2",
		"frames": 3,
	}).Debug("arp reply accepted")

	assert.Equal(t, "[DEBUG] frames=3,target=10.0.0.2 arp reply accepted\n", buf.String())
	assert.True(t, GetLogger().IsDebugEnabled())
}

func TestInitLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(config.LogConfig{Level: "warn", Output: &buf}))

	GetLogger().Info("hidden")
	GetLogger().WithError(errors.New("boom")).Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "[WARNING]")
	assert.False(t, GetLogger().IsDebugEnabled())
}

func TestInitWithFileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "linkprobe.log")
	var buf bytes.Buffer

	err := Init(config.LogConfig{
		Level:  "info",
		Output: &buf,
		File: config.LogFileConfig{
			Enabled:    true,
			Path:       logPath,
			MaxSizeMB:  1,
			MaxBackups: 1,
		},
	})
	require.NoError(t, err)

	GetLogger().Info("written to both")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "written to both"))
	assert.Contains(t, buf.String(), "written to both")
}

func TestInitFileOutputRequiresPath(t *testing.T) {
	err := Init(config.LogConfig{Level: "info", File: config.LogFileConfig{Enabled: true}})
	assert.Error(t, err)
}

func TestMultiWriterKeepsWritingAfterError(t *testing.T) {
	var good bytes.Buffer
	m := NewMultiWriter().Add(failingWriter{}).Add(&good)

	n, err := m.Write([]byte("line"))
	assert.Equal(t, 4, n)
	assert.Error(t, err)
	assert.Equal(t, "line", good.String())
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }
