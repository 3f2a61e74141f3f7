// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package commons

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the application-wide logging interface. All services receive a
// Logger at construction time; packages never reach for a global logger.
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})

	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Fatalf(template string, args ...interface{})

	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	Sync() error
}

type options struct {
	name  string
	path  string
	level string
}

// Option configures NewApplicationLogger.
type Option func(*options)

// Name sets the logger name, used for the console prefix and the log file name.
func Name(v string) Option { return func(o *options) { o.name = v } }

// Path enables rotated file output under the given directory.
func Path(v string) Option { return func(o *options) { o.path = v } }

// Level sets the minimum log level ("debug", "info", "warn", "error").
func Level(v string) Option { return func(o *options) { o.level = v } }

type applicationLogger struct {
	*zap.SugaredLogger
}

// NewApplicationLogger builds a zap-backed Logger. Console output always goes
// to stdout; when Path is set a JSON copy is written to a rotated file via
// lumberjack.
func NewApplicationLogger(opts ...Option) (Logger, error) {
	o := options{name: "application", level: "debug"}
	for _, opt := range opts {
		opt(&o)
	}

	lvl, err := zapcore.ParseLevel(o.level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), lvl),
	}
	if o.path != "" {
		sink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(o.path, o.name+".log"),
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, lvl))
	}

	lg := zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Named(o.name)
	return &applicationLogger{SugaredLogger: lg.Sugar()}, nil
}
