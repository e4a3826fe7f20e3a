// Package logger sets up the structured loggers used by the terminal client
// and the API server
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hyperworkchat/hyperwork/internal/config"
	"github.com/hyperworkchat/hyperwork/internal/osutil"
)

const (
	maxLogSizeMB  = 10
	maxLogBackups = 3
	maxLogAgeDays = 28
)

// NewFileWriter returns a writer that rotates the log file at path.
func NewFileWriter(path string) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
		MaxAge:     maxLogAgeDays,
		Compress:   true,
	}
}

// New returns a JSON slog logger writing to w. Debug records are kept
// outside production.
func New(w io.Writer, environment string) *slog.Logger {
	level := slog.LevelDebug
	if environment == config.EnvProduction {
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})).With(slog.String("env", environment))
}

// Setup installs a file-backed slog logger as the default and returns the
// underlying writer so that it can be closed on exit.
func Setup(path, environment string) (io.Closer, error) {
	err := os.MkdirAll(filepath.Dir(path), osutil.DirPermission)
	if err != nil {
		return nil, err
	}

	w := NewFileWriter(path)

	slog.SetDefault(New(w, environment))

	return w, nil
}

// NewServer returns the console logger used by the API server and its jobs.
func NewServer(w io.Writer, environment string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    environment == config.EnvProduction,
	}

	level := zerolog.DebugLevel
	if environment == config.EnvProduction {
		level = zerolog.InfoLevel
	}

	return zerolog.New(output).Level(level).With().
		Timestamp().
		Str("env", environment).
		Logger()
}
