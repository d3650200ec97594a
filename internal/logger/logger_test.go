package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupRejectsBadValues(t *testing.T) {
	assert.Error(t, Setup("loud", "text", ""))
	assert.Error(t, Setup("info", "xml", ""))
}

func TestNewRespectsLevelAndOutput(t *testing.T) {
	require.NoError(t, Setup("warn", "text", ""))
	defer Setup("info", "text", "")

	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	l := New("test")
	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "test")
	assert.Equal(t, log.WarnLevel, log.GetLevel())
}

func TestSetupWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mailtype.log")
	require.NoError(t, Setup("debug", "json", path))

	New("train").Debug("loaded", "messages", 3)
	require.NoError(t, Close())
	defer Setup("info", "text", "")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"loaded"`)
	assert.Contains(t, string(data), `"messages":3`)
}
