package main

import (
	"strings"

	"github.com/BertoldVdb/mecha-tools/mechahal"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		DisableCaller:    true,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return config.Build()
}

// halLogFunc forwards HAL messages up to maxLevel. Level 1 is progress and
// goes out as info, everything chattier as debug.
func halLogFunc(log *zap.SugaredLogger, maxLevel int) mechahal.LogFunc {
	log = log.Named("hal")

	return func(level int, format string, param ...interface{}) {
		if level > maxLevel {
			return
		}
		if level <= 1 {
			log.Infof(format, param...)
		} else {
			log.Debugf(format, param...)
		}
	}
}
