package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Name: "starlight-server", Level: "warn", Encoding: "json", Output: &buf})

	log.Info("hidden")
	log.Named("engine").Warn("shown", zap.Int("keys", 3))
	require.NoError(t, log.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "starlight-server.engine", entry["logger"])
	assert.Equal(t, "shown", entry["msg"])
	assert.EqualValues(t, 3, entry["keys"])
	assert.Contains(t, entry["caller"], "logger_test.go")
}

func TestNew_Fallbacks(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "loud", Encoding: "xml", Output: &buf})

	log.Debug("below info")
	log.Info("at info")

	out := buf.String()
	assert.NotContains(t, out, "below info")
	assert.True(t, strings.HasPrefix(out, "{"), "unknown encoding falls back to json: %q", out)
	assert.Contains(t, out, `"msg":"at info"`)
	assert.NotContains(t, out, `"logger"`, "no name, no logger key")
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Name: "starlight-cli", Level: "debug", Encoding: "console", Output: &buf})

	log.Debug("dialing")

	out := buf.String()
	assert.Contains(t, out, "debug")
	assert.Contains(t, out, "starlight-cli")
	assert.Contains(t, out, "dialing")
}
