package ui

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chaz8081/hidshare/internal/session"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestLogControlErrorLogsFailure(t *testing.T) {
	buf := captureLog(t)

	logControlError("start", func() error {
		return errors.New("profile registration failed")
	})

	out := buf.String()
	assert.Contains(t, out, "start failed")
	assert.Contains(t, out, "profile registration failed")
}

func TestLogControlErrorSilentOnSuccess(t *testing.T) {
	buf := captureLog(t)

	logControlError("stop", func() error { return nil })

	assert.Empty(t, buf.String())
}

func TestStatusLine(t *testing.T) {
	assert.Equal(t, "Not sharing", statusLine(session.Idle, 0))
	assert.Equal(t, "Sharing with 1 host", statusLine(session.Active, 1))
	assert.Equal(t, "Sharing with 2 hosts", statusLine(session.Active, 2))
	assert.Equal(t, "Could not start sharing", statusLine(session.Error, 0))
	assert.Equal(t, "Stopping...", statusLine(session.Stopping, 0))
}
