package registry

import (
	"fmt"
	"time"
)

// Logger is the logging surface used across the registry. *slog.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the options the HTTP surface and the lifecycle engine need
type Config interface {
	GetRoutePrefix() string
	GetSessionCookieName() string
	GetSessionTTL() time.Duration
	GetSessionSecure() bool
	GetCORSOrigins() string
	GetBcryptCost() int
	GetMetricsEnabled() bool
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) {
	printLine("[DBG]", msg, args...)
}

func (d defLogger) Info(msg string, args ...any) {
	printLine("[INF]", msg, args...)
}

func (d defLogger) Warn(msg string, args ...any) {
	printLine("[WRN]", msg, args...)
}

func (d defLogger) Error(msg string, args ...any) {
	printLine("[ERR]", msg, args...)
}

func printLine(level, msg string, args ...any) {
	line := append([]any{level, "REGISTRY", msg}, args...)
	fmt.Println(line...)
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
