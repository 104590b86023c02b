// Copyright (c) 2026 Netskope, Inc. All rights reserved.

package log

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options select the log sink and level.
type Options struct {
	Dir    string // Default: /tmp
	Name   string // Default: executable name
	Debug  bool
	Stdout bool
}

// NewLogger returns a logger using the Zap structured logger.
// If Stdout is false, a file-based logger writing to <Dir>/<Name>.log is used.
// Otherwise a console logger is used.
func NewLogger(opts Options) (*zap.Logger, error) {
	cfg := encoderConfig(opts.Debug)

	level := zap.InfoLevel
	if opts.Debug {
		level = zap.DebugLevel
	}

	var sink zapcore.WriteSyncer
	if opts.Stdout {
		sink = zapcore.AddSync(os.Stdout)
	} else {
		path, err := LogPath(opts)
		if err != nil {
			return nil, err
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		sink = zapcore.AddSync(file)
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), sink, level)

	if opts.Debug {
		return zap.New(core, zap.AddCaller()), nil
	}
	return zap.New(core), nil
}

// LogPath returns the file NewLogger writes to when not logging to stdout,
// creating the directory if needed.
func LogPath(opts Options) (string, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "/tmp"
	}
	name := opts.Name
	if name == "" {
		name = filepath.Base(os.Args[0])
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	return filepath.Join(dir, name+".log"), nil
}

func encoderConfig(debug bool) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.EpochTimeEncoder
	cfg.LevelKey = "lv"
	cfg.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(l.CapitalString()[:2])
	}
	if debug {
		cfg.EncodeCaller = zapcore.ShortCallerEncoder
		cfg.CallerKey = "call"
	}
	return cfg
}
