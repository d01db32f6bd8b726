// Package logging builds the zap logger. The TUI owns the terminal, so
// entries go to a file instead of stderr.
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects where and how much to log
type Options struct {
	// File is the log file path; empty writes to stderr
	File string
	// Level as understood by zapcore.ParseLevel
	Level string
	// Debug forces the debug level
	Debug bool
}

// New returns a logger writing console-encoded entries to opts.File.
// The returned close function flushes and releases the file.
func New(opts Options) (*zap.Logger, func() error, error) {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	level := zapcore.InfoLevel
	if opts.Level != "" {
		l, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, err
		}
		level = l
	}
	if opts.Debug || os.Getenv("STN_DEBUG") != "" {
		level = zapcore.DebugLevel
	}

	var (
		writer  zapcore.WriteSyncer
		closeFn = func() error { return nil }
	)
	if opts.File == "" {
		writer = zapcore.Lock(os.Stderr)
	} else {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, err
		}
		writer = zapcore.Lock(f)
		closeFn = f.Close
	}

	core := zapcore.NewCore(encoder, writer, level)
	logger := zap.New(core, zap.AddCaller())
	return logger, func() error {
		_ = logger.Sync()
		return closeFn()
	}, nil
}
