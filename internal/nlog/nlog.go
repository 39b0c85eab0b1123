// Package nlog builds the structured, colorized loggers used by the helper
// dialogue and nipctl, grounded in teranos-QNTX's ixgest/git/ingest.go use
// of zap.SugaredLogger with a color-aware console encoder.
package nlog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.SugaredLogger writing to stderr (stdout is reserved for
// the git remote-helper protocol dialogue), with a color console encoder
// when stderr is a TTY and a plain one otherwise.
func New(level zapcore.Level) *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	if isTTY(os.Stderr) {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(os.Stderr)),
		level,
	)
	return zap.New(core).Sugar()
}

// ParseLevel maps the NIP_LOG values this project documents ("debug",
// "info", "warn", "error") onto a zapcore.Level, defaulting to Info on an
// empty or unrecognized value.
func ParseLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
