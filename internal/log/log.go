// Package log holds the process-wide zap logger of the groundwatch binaries.
// Components that are handed a logger take a *zap.SugaredLogger from
// GetSugaredLogger; the package functions are for start-up and shutdown
// messages.
package log

import (
	"fmt"
	"sync"

	"github.com/chrissnell/groundwatch/internal/constants"
	"go.uber.org/zap"
)

var (
	mu      sync.RWMutex
	base    *zap.SugaredLogger
	wrapped *zap.SugaredLogger
)

// Init builds the process logger. Debug mode writes console lines at debug
// level, otherwise JSON at info level. Every entry carries the version.
func Init(debug bool) error {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.InitialFields = map[string]interface{}{"version": constants.Version}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %w", err)
	}
	setLogger(l)
	return nil
}

func setLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l.Sugar()
	wrapped = l.WithOptions(zap.AddCallerSkip(1)).Sugar()
}

// current falls back to a production logger when Init was never called.
func current() (*zap.SugaredLogger, *zap.SugaredLogger) {
	mu.RLock()
	b, w := base, wrapped
	mu.RUnlock()
	if b != nil {
		return b, w
	}

	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	setLogger(l)
	return current()
}

// GetSugaredLogger returns the logger handed to controllers and clients.
func GetSugaredLogger() *zap.SugaredLogger {
	b, _ := current()
	return b
}

// Sync flushes any buffered log entries
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}

func Info(args ...interface{}) {
	_, w := current()
	w.Info(args...)
}

func Infof(template string, args ...interface{}) {
	_, w := current()
	w.Infof(template, args...)
}

func Warnf(template string, args ...interface{}) {
	_, w := current()
	w.Warnf(template, args...)
}

func Errorf(template string, args ...interface{}) {
	_, w := current()
	w.Errorf(template, args...)
}
