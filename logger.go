package scalewire

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the package logger. It is a no-op logger until
// SetLogger installs one.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger installs the logger Connect and Client methods default
// to. Call it before the first Connect.
func SetLogger(l *zap.Logger) {
	if l == nil {
		return
	}
	logger = l
}
