// Package logging builds the zap loggers used by tileprep commands.
//
// Entries go to the console in a short human readable form and, when a log
// file is configured, to a rotating JSON file as well. Every logger carries
// a run_id field so entries of concurrent runs sharing a file can be told
// apart.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Level is one of debug, info, warn or error.
	Level string

	// File enables JSON logging to a rotating file at this path.
	File       string
	FileConfig FileConfig

	// Console receives console output. Defaults to os.Stderr.
	Console io.Writer

	// RunID overrides the generated run identifier.
	RunID string
}

// ParseLevel converts a level name into a zap level.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// New builds a logger from opts.
func New(opts Options) (*zap.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(NewConsoleEncoderConfig()), zapcore.AddSync(console), level),
	}
	if opts.File != "" {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(NewEncoderConfig()),
			NewFileWriter(opts.File, opts.FileConfig),
			level,
		))
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()).With(zap.String(FieldRunID, runID)), nil
}
