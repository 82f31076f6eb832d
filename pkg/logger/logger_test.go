package logger

import (
	"learnhub/internal/config"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestSetLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Mode = "release"
	cfg.Log.Level = "warn"
	SetLevel(cfg)
	assert.Equal(t, zapcore.WarnLevel, Level())

	cfg.Log.Level = "bogus"
	SetLevel(cfg)
	assert.Equal(t, zapcore.InfoLevel, Level())

	cfg.Server.Mode = "debug"
	SetLevel(cfg)
	assert.Equal(t, zapcore.DebugLevel, Level())
}

func TestInitLoggerWritesFile(t *testing.T) {
	cfg := config.Default()
	path := filepath.Join(t.TempDir(), "app.log")
	cfg.Log.File = path
	InitLogger(cfg)
	defer func() { Log = zap.NewNop() }()

	Log.Info("hello")
	_, err := os.Stat(path)
	assert.NoError(t, err)
}
