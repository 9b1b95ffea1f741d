package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log = zap.NewNop().Sugar()

// Init sets up a development console logger at info level.
func Init() {
	if err := InitWith("info", "console"); err != nil {
		panic("failed to create logger: " + err.Error())
	}
}

// InitWith builds the global logger. format is "json" for the production
// encoder, anything else gives the colored console encoder.
func InitWith(level, format string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	log = l.Sugar()
	return nil
}

// New wraps a core with the caller skip used by the package-level helpers.
func New(core zapcore.Core) *zap.SugaredLogger {
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// Set replaces the global logger and returns the previous one.
func Set(l *zap.SugaredLogger) *zap.SugaredLogger {
	prev := log
	log = l
	return prev
}

func L() *zap.SugaredLogger {
	return log
}

func Info(msg string, keysAndValues ...interface{}) {
	log.Infow(msg, keysAndValues...)
}

func Infof(format string, v ...interface{}) {
	log.Infof(format, v...)
}

func Warn(msg string, keysAndValues ...interface{}) {
	log.Warnw(msg, keysAndValues...)
}

func Warnf(format string, v ...interface{}) {
	log.Warnf(format, v...)
}

func Error(msg string, keysAndValues ...interface{}) {
	log.Errorw(msg, keysAndValues...)
}

func Errorf(format string, v ...interface{}) {
	log.Errorf(format, v...)
}

func Debug(msg string, keysAndValues ...interface{}) {
	log.Debugw(msg, keysAndValues...)
}

func Debugf(format string, v ...interface{}) {
	log.Debugf(format, v...)
}

func Fatal(msg string, keysAndValues ...interface{}) {
	log.Fatalw(msg, keysAndValues...)
}

func Fatalf(format string, v ...interface{}) {
	log.Fatalf(format, v...)
}

// WithError returns a child logger carrying err under the "error" key.
func WithError(err error) *zap.SugaredLogger {
	return log.With(zap.Error(err))
}

func WithFields(fields map[string]interface{}) *zap.SugaredLogger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return log.With(args...)
}

func With(keysAndValues ...interface{}) *zap.SugaredLogger {
	return log.With(keysAndValues...)
}

func Sync() error {
	return log.Sync()
}
