package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := Init(Options{Development: false, Output: &buf})

	log.Debug("hidden")
	log.Info("vault entry revealed", "entry_id", "e1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "vault entry revealed", record["msg"])
	assert.Equal(t, "e1", record["entry_id"])
	assert.Equal(t, "spaces", record["app"])
	assert.Same(t, log, slog.Default())
}

func TestInit_DevelopmentLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := Init(Options{Development: true, Output: &buf})

	log.Debug("poll tick", "interval", "5s")

	assert.Contains(t, buf.String(), "poll tick")
	assert.Contains(t, buf.String(), "interval=5s")
}
