package main

import (
	"bytes"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/slidegate/internal/anomaly"
	"github.com/user/slidegate/internal/storage"
)

func writeSlider(t *testing.T, notchX int) string {
	t.Helper()
	img := imaging.New(300, 60, color.White)
	if notchX >= 0 {
		img.Set(notchX, 25, color.NRGBA{10, 20, 30, 255})
	}
	path := filepath.Join(t.TempDir(), "slider.png")
	require.NoError(t, imaging.Save(img, path))
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	if os.Getenv("DB_PATH") == "" {
		t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "test.db"))
	}
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestScan_PrintsSampleAndMapping(t *testing.T) {
	path := writeSlider(t, 200)

	out, err := runCmd(t, "scan", path, "--box-x", "100", "--box-width", "300")
	require.NoError(t, err)
	assert.Contains(t, out, "anomaly: x=200 y=25 rgb=(10,20,30) image=300x60")
	assert.Contains(t, out, "target_x=270.00")
}

func TestScan_FlagsOverrideConfig(t *testing.T) {
	path := writeSlider(t, 200)

	out, err := runCmd(t, "scan", path, "--box-width", "150", "--offset", "10", "--direction", "left-to-right")
	require.NoError(t, err)
	assert.Contains(t, out, "scale=0.5000")
	assert.Contains(t, out, "target_x=95.00")
}

func TestScan_NoAnomaly(t *testing.T) {
	path := writeSlider(t, -1)
	_, err := runCmd(t, "scan", path)
	assert.ErrorIs(t, err, anomaly.ErrNoAnomaly)
}

func TestScan_BadArgs(t *testing.T) {
	_, err := runCmd(t, "scan")
	assert.Error(t, err)

	path := writeSlider(t, 5)
	_, err = runCmd(t, "scan", path, "--threshold", "999")
	assert.Error(t, err)

	_, err = runCmd(t, "scan", path, "--direction", "sideways")
	assert.Error(t, err)
}

func TestHistory_PrintsAttemptsAndActivity(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := storage.New(dbPath)
	require.NoError(t, err)

	now := time.Now()
	okID, err := store.StartAttempt(7, now)
	require.NoError(t, err)
	require.NoError(t, store.LogActivity(okID, "anomaly", "x=200 y=25"))
	require.NoError(t, store.FinishAttempt(okID, storage.Result{
		FinishedAt: now, Found: true, AnomalyX: 200, AnomalyY: 25, TargetX: 270, Outcome: "released",
	}))

	failID, err := store.StartAttempt(8, now)
	require.NoError(t, err)
	require.NoError(t, store.FinishAttempt(failID, storage.Result{
		FinishedAt: now, Outcome: "failed", Err: errors.New("no anomaly"),
	}))
	require.NoError(t, store.Close())

	t.Setenv("DB_PATH", dbPath)
	out, err := runCmd(t, "history")
	require.NoError(t, err)

	assert.Contains(t, out, "today: 2 attempts")
	assert.Contains(t, out, okID+" seed=7")
	assert.Contains(t, out, "anomaly=(200,25) target_x=270.00")
	assert.Contains(t, out, "  anomaly x=200 y=25")
	assert.Contains(t, out, failID+" seed=8")
	assert.Contains(t, out, `error="no anomaly"`)
}

func TestHistory_EmptyDatabase(t *testing.T) {
	out, err := runCmd(t, "history", "--limit", "3")
	require.NoError(t, err)
	assert.Equal(t, "today: 0 attempts\n", out)
}

func TestHistory_RejectsBadLimit(t *testing.T) {
	_, err := runCmd(t, "history", "--limit", "0")
	assert.Error(t, err)
}
