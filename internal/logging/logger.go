// Package logging provides zap logger helpers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileTimeLayout is the timestamp layout used in the log file.
const FileTimeLayout = "2006-01-02 15:04:05,000"

// New builds a zap.Logger configured for development or production. When
// file is non-empty, every entry is also appended to that file as
// "<ts> - <LEVEL> - <msg>" lines. The returned func closes the file.
func New(development bool, file string) (*zap.Logger, func(), error) {
	var (
		cfg zap.Config
		err error
	)
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.DisableStacktrace = false
	}
	cfg.EncoderConfig.TimeKey = "ts"

	var opts []zap.Option
	closeFile := func() {}
	if file != "" {
		sink, closer, openErr := zap.Open(file)
		if openErr != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", file, openErr)
		}
		closeFile = closer
		fileCore := zapcore.NewCore(
			zapcore.NewConsoleEncoder(FileEncoderConfig()),
			sink,
			cfg.Level,
		)
		opts = append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
	}

	logger, err := cfg.Build(opts...)
	if err != nil {
		closeFile()
		if development {
			return nil, nil, fmt.Errorf("build dev logger: %w", err)
		}
		return nil, nil, fmt.Errorf("build prod logger: %w", err)
	}
	return logger, closeFile, nil
}

// FileEncoderConfig is the encoder used for the log file that the chat
// "log" command tails.
func FileEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		MessageKey:       "msg",
		EncodeTime:       zapcore.TimeEncoderOfLayout(FileTimeLayout),
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " - ",
		LineEnding:       zapcore.DefaultLineEnding,
	}
}
