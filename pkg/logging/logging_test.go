package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

// setStateHome points XDG_STATE_HOME at dir. The reload cleanup is
// registered first so it runs after the variable is restored.
func setStateHome(t *testing.T, dir string) {
	t.Cleanup(xdg.Reload)
	t.Setenv("XDG_STATE_HOME", dir)
	xdg.Reload()
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name      string
		verbosity int
		wantLevel zerolog.Level
	}{
		{"default warn level", 0, zerolog.WarnLevel},
		{"info level", 1, zerolog.InfoLevel},
		{"debug level", 2, zerolog.DebugLevel},
		{"trace level", 3, zerolog.TraceLevel},
		{"high verbosity defaults to trace", 5, zerolog.TraceLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			setStateHome(t, tempDir)

			SetupLogger(tt.verbosity)

			assert.Equal(t, tt.wantLevel, zerolog.GlobalLevel())

			logPath := filepath.Join(tempDir, "tmpfiles", "tmpfiles.log")
			_, err := os.Stat(logPath)
			assert.NoError(t, err, "log file should exist at %s", logPath)
		})
	}
}

func TestSetup_WithoutFile(t *testing.T) {
	tempDir := t.TempDir()
	setStateHome(t, tempDir)

	Setup(1, false)

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	_, err := os.Stat(filepath.Join(tempDir, "tmpfiles"))
	assert.True(t, os.IsNotExist(err), "no log directory should be created")
}

func TestGetLogFilePath(t *testing.T) {
	t.Run("with XDG_STATE_HOME", func(t *testing.T) {
		setStateHome(t, "/custom/state")
		assert.Equal(t, "/custom/state/tmpfiles/tmpfiles.log", filepath.ToSlash(getLogFilePath()))
	})

	t.Run("without XDG_STATE_HOME", func(t *testing.T) {
		setStateHome(t, "")
		got := filepath.ToSlash(getLogFilePath())
		assert.True(t, strings.HasSuffix(got, ".local/state/tmpfiles/tmpfiles.log"), got)
	})
}

func TestGetLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	SetupWriter(&buf, 1)

	logger := GetLogger("layers")
	logger.Info().Msg("loaded")

	assert.Contains(t, buf.String(), `"component":"layers"`)
	assert.Contains(t, buf.String(), "loaded")
}

func TestWithSource(t *testing.T) {
	var buf bytes.Buffer
	SetupWriter(&buf, 1)

	logger := WithSource(GetLogger("parser"), "/etc/tmpfiles.d/a.conf", 7)
	logger.Warn().Msg("bad line")

	out := buf.String()
	assert.Contains(t, out, `"file":"/etc/tmpfiles.d/a.conf"`)
	assert.Contains(t, out, `"line":7`)
}

func TestLogDuration(t *testing.T) {
	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	LogDuration(time.Now().Add(-5*time.Second), "test-operation")

	assert.Contains(t, buf.String(), "test-operation")
	assert.Contains(t, buf.String(), "duration")
}

func TestLogOperationStart(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	logger := zerolog.New(&buf)

	done := LogOperationStart(logger, "reconcile")
	done()

	out := buf.String()
	assert.Contains(t, out, "Operation started")
	assert.Contains(t, out, "Operation completed")
}
