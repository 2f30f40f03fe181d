package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoggerIsUsable(t *testing.T) {
	require.NotNil(t, Logger)
	assert.NotPanics(t, func() { Logger.Infof("hello %d", 1) })
}

func TestInit_InvalidLevel(t *testing.T) {
	prev := Logger
	defer func() { Logger = prev }()

	err := Init(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestInit_WritesFile(t *testing.T) {
	prev := Logger
	defer func() { Logger = prev }()

	path := filepath.Join(t.TempDir(), "slidegate.log")
	require.NoError(t, Init(Options{Level: "debug", File: path, MaxSizeMB: 1}))

	Logger.Infow("drag complete", "target_x", 300.0)
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "drag complete")
	assert.Contains(t, string(data), `"target_x":300`)
}
