package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/slidegate/internal/anomaly"
	"github.com/user/slidegate/internal/geom"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.AppURL, "the attached tab is kept by default")
	assert.Equal(t, "http://127.0.0.1:9222", cfg.ChromeURL)
	assert.False(t, cfg.LaunchBrowser)
	assert.Equal(t, geom.Size{Width: 1440, Height: 900}, cfg.Viewport)
	assert.Equal(t, 2.0, cfg.DeviceScaleFactor)
	assert.Equal(t, ".cf-button__logo", cfg.ButtonSelector)
	assert.Equal(t, ".cf-slide__canvas", cfg.SliderSelector)
	assert.Equal(t, ".cf-slider__button", cfg.HandleSelector)
	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.Equal(t, anomaly.DefaultConfig(), cfg.Anomaly)
	assert.Equal(t, 0.8, cfg.Stealth.Mouse.OvershootChance)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_URL", "http://challenge.test")
	t.Setenv("LAUNCH_BROWSER", "true")
	t.Setenv("HEADLESS", "1")
	t.Setenv("VIEWPORT_WIDTH", "1280")
	t.Setenv("VIEWPORT_HEIGHT", "720")
	t.Setenv("DEVICE_SCALE_FACTOR", "1")
	t.Setenv("WHITE_THRESHOLD", "240")
	t.Setenv("OFFSET_PIXELS", "12.5")
	t.Setenv("SCAN_DIRECTION", "left-to-right")
	t.Setenv("SEED", "1234")
	t.Setenv("MAX_ATTEMPTS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://challenge.test", cfg.AppURL)
	assert.True(t, cfg.LaunchBrowser)
	assert.True(t, cfg.Headless)
	assert.Equal(t, geom.Size{Width: 1280, Height: 720}, cfg.Viewport)
	assert.Equal(t, 1.0, cfg.DeviceScaleFactor)
	assert.Equal(t, uint8(240), cfg.Anomaly.WhiteThreshold)
	assert.Equal(t, 12.5, cfg.Anomaly.OffsetPixels)
	assert.Equal(t, anomaly.LeftToRight, cfg.Anomaly.Direction)
	assert.Equal(t, int64(1234), cfg.Seed)
	assert.Equal(t, 3, cfg.MaxAttempts)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
		msg        string
	}{
		{"VIEWPORT_WIDTH", "wide", "VIEWPORT_WIDTH"},
		{"SEED", "1.5", "SEED"},
		{"HEADLESS", "maybe", "HEADLESS"},
		{"WHITE_THRESHOLD", "300", "WHITE_THRESHOLD"},
		{"SCAN_DIRECTION", "upward", "SCAN_DIRECTION"},
		{"MAX_ATTEMPTS", "0", "MAX_ATTEMPTS"},
		{"DEVICE_SCALE_FACTOR", "-1", "DEVICE_SCALE_FACTOR"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoad_BlankValueFallsBack(t *testing.T) {
	t.Setenv("MAX_ATTEMPTS", "  ")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.MaxAttempts)
}
