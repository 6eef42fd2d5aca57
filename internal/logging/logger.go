// Package logging builds the application logger. The terminal belongs to the
// reader UI, so log output only ever goes to a file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level names
const (
	LevelNone   = "none"
	LevelDebug  = "debug"
	LevelNormal = "normal"
)

// Config describes the file logger
type Config struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Destination string `mapstructure:"destination" yaml:"destination,omitempty"`
	Mode        string `mapstructure:"mode" yaml:"mode,omitempty"`
}

// Prepare returns the configured logger and a function releasing the log file
func (conf Config) Prepare() (*zap.Logger, func() error, error) {
	var level zap.AtomicLevel
	switch conf.Level {
	case LevelDebug:
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case LevelNormal:
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case LevelNone, "":
		return zap.NewNop(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown log level %q", conf.Level)
	}
	if conf.Destination == "" {
		return nil, nil, fmt.Errorf("log level %s requires a destination", conf.Level)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if conf.Mode == "append" {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	if err := os.MkdirAll(filepath.Dir(conf.Destination), 0755); err != nil {
		return nil, nil, fmt.Errorf("unable to create log directory: %w", err)
	}
	f, err := os.OpenFile(conf.Destination, flags, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to access log destination (%s): %w", conf.Destination, err)
	}

	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.Lock(f), level)
	log := zap.New(core, zap.AddCaller()).Named("jianyue")
	return log, func() error {
		_ = log.Sync()
		return f.Close()
	}, nil
}
